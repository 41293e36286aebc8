package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/database"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the MVRouter catalog database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create or update every catalog table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(conn *database.Connection, log *logger.Logger) error {
					fmt.Println("Running migrations...")
					if err := database.NewMigrator(conn).Up(); err != nil {
						return fmt.Errorf("failed to run migrations: %w", err)
					}
					fmt.Println("Migrations completed successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Drop every catalog table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(conn *database.Connection, log *logger.Logger) error {
					fmt.Println("Rolling back migrations...")
					if err := database.NewMigrator(conn).Down(); err != nil {
						return fmt.Errorf("failed to rollback migrations: %w", err)
					}
					fmt.Println("Migrations rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which catalog tables exist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(conn *database.Connection, log *logger.Logger) error {
					status, err := database.NewMigrator(conn).Status()
					if err != nil {
						return err
					}
					missing := 0
					for _, table := range status {
						state := "ok"
						if !table.Exists {
							state = "missing"
							missing++
						}
						fmt.Printf("  %-18s %s\n", table.Table, state)
					}
					if missing > 0 {
						fmt.Println("Some tables are missing - run: migrate up")
					}
					return nil
				})
			},
		},
		newSeedCommand(),
	)

	return root
}

func newSeedCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a catalog YAML file and compile its mapping sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(conn *database.Connection, log *logger.Logger) error {
				ctx := context.Background()

				seeder := database.NewSeeder(conn.DB, models.NewValidationService(), log)
				report, err := seeder.SeedFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d providers, %d models, %d endpoints, %d parameter sets, %d mapping sets (%d records)\n",
					report.Providers, report.Models, report.Endpoints, report.ParameterSets, report.MappingSets, report.Records)

				if !check {
					return nil
				}
				return compileMappingSets(ctx, conn.DB, services.NewSchemaService(log))
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", true, "compile every active mapping set after seeding")

	return cmd
}

// compileMappingSets reports problems and warnings of every active mapping set
func compileMappingSets(ctx context.Context, db *gorm.DB, schemaSvc services.SchemaService) error {
	var sets []models.MappingSet
	err := db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("is_active = ?", true).
		Find(&sets).Error
	if err != nil {
		return err
	}

	failed := 0
	for _, set := range sets {
		var endpoint models.Endpoint
		if err := db.WithContext(ctx).First(&endpoint, "id = ?", set.EndpointID).Error; err != nil {
			return fmt.Errorf("mapping set %q: endpoint: %w", set.Name, err)
		}
		var canonical models.ParameterSet
		if err := db.WithContext(ctx).First(&canonical, "id = ?", set.ParameterSetID).Error; err != nil {
			return fmt.Errorf("mapping set %q: parameter set: %w", set.Name, err)
		}

		report, err := schemaSvc.CompileMappingSet(ctx, endpoint.Schema, canonical.Schema, set.Records)
		for _, warning := range report.Warnings {
			fmt.Printf("  warning %s: %s\n", set.Name, warning)
		}
		if err != nil {
			failed++
			for _, problem := range report.Problems {
				fmt.Printf("  problem %s: %s\n", set.Name, problem)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d mapping sets failed to compile", failed, len(sets))
	}
	fmt.Printf("All %d active mapping sets compile\n", len(sets))
	return nil
}

func withDatabase(run func(conn *database.Connection, log *logger.Logger) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return run(conn, logger.NewLogger(cfg))
}
