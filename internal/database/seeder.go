package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalog is the YAML layout of a catalog seed file
type SeedCatalog struct {
	Providers     []SeedProvider     `yaml:"providers"`
	ParameterSets []SeedParameterSet `yaml:"parameter_sets"`
	MappingSets   []SeedMappingSet   `yaml:"mapping_sets"`
}

// SeedProvider is a provider with its models and endpoints
type SeedProvider struct {
	Slug      string         `yaml:"slug"`
	Name      string         `yaml:"name"`
	Active    *bool          `yaml:"active"`
	Models    []SeedModel    `yaml:"models"`
	Endpoints []SeedEndpoint `yaml:"endpoints"`
}

// SeedModel is one model of a provider
type SeedModel struct {
	Slug    string `yaml:"slug"`
	Name    string `yaml:"name"`
	Default bool   `yaml:"default"`
	Active  *bool  `yaml:"active"`
}

// SeedEndpoint is one provider function. Schema keeps its YAML key order.
type SeedEndpoint struct {
	Name        string    `yaml:"name"`
	DisplayName string    `yaml:"display_name"`
	URL         string    `yaml:"url"`
	Default     bool      `yaml:"default"`
	Active      *bool     `yaml:"active"`
	Schema      yaml.Node `yaml:"schema"`
}

// SeedParameterSet is a canonical schema with default values
type SeedParameterSet struct {
	Name     string                 `yaml:"name"`
	Schema   yaml.Node              `yaml:"schema"`
	Defaults map[string]interface{} `yaml:"defaults"`
}

// SeedMappingSet binds an endpoint to a parameter set by name
type SeedMappingSet struct {
	Name         string       `yaml:"name"`
	Provider     string       `yaml:"provider"`
	Endpoint     string       `yaml:"endpoint"`
	ParameterSet string       `yaml:"parameter_set"`
	Active       *bool        `yaml:"active"`
	Records      []SeedRecord `yaml:"records"`
}

// SeedRecord is one mapping record
type SeedRecord struct {
	FromField      string `yaml:"fromField"`
	ToField        string `yaml:"toField"`
	FieldType      string `yaml:"fieldType"`
	Transformation string `yaml:"transformation"`
}

// SeedReport counts what a seed run wrote
type SeedReport struct {
	Providers     int `json:"providers"`
	Models        int `json:"models"`
	Endpoints     int `json:"endpoints"`
	ParameterSets int `json:"parameter_sets"`
	MappingSets   int `json:"mapping_sets"`
	Records       int `json:"records"`
}

// Seeder loads catalog YAML into the database. Entities are matched by their natural
// keys, so seeding the same file twice updates rows in place.
type Seeder struct {
	db        *gorm.DB
	validator *models.ValidationService
	logger    *logger.Logger
}

// NewSeeder creates a new catalog seeder
func NewSeeder(db *gorm.DB, validator *models.ValidationService, logger *logger.Logger) *Seeder {
	return &Seeder{db: db, validator: validator, logger: logger}
}

// SeedFile seeds the catalog from a YAML file
func (s *Seeder) SeedFile(ctx context.Context, path string) (*SeedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return s.Seed(ctx, data)
}

// Seed writes every entity of the YAML document in one transaction
func (s *Seeder) Seed(ctx context.Context, data []byte) (*SeedReport, error) {
	var catalog SeedCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	report := &SeedReport{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range catalog.ParameterSets {
			if err := s.seedParameterSet(tx, seed); err != nil {
				return fmt.Errorf("parameter set %q: %w", seed.Name, err)
			}
			report.ParameterSets++
		}

		for _, seed := range catalog.Providers {
			if err := s.seedProvider(tx, seed, report); err != nil {
				return fmt.Errorf("provider %q: %w", seed.Slug, err)
			}
			report.Providers++
		}

		for _, seed := range catalog.MappingSets {
			records, err := s.seedMappingSet(tx, seed)
			if err != nil {
				return fmt.Errorf("mapping set %q: %w", seed.Name, err)
			}
			report.MappingSets++
			report.Records += records
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"providers":      report.Providers,
		"models":         report.Models,
		"endpoints":      report.Endpoints,
		"parameter_sets": report.ParameterSets,
		"mapping_sets":   report.MappingSets,
	}).Info("Catalog seeded")

	return report, nil
}

func (s *Seeder) seedParameterSet(tx *gorm.DB, seed SeedParameterSet) error {
	schema, err := decodeSchema(&seed.Schema)
	if err != nil {
		return err
	}

	var set models.ParameterSet
	if err := tx.Where("name = ?", seed.Name).Limit(1).Find(&set).Error; err != nil {
		return err
	}
	set.Name = seed.Name
	set.Schema = schema
	set.Defaults = models.JSONMap(seed.Defaults)

	if err := s.validator.ValidateStruct(&set); err != nil {
		return err
	}
	return tx.Save(&set).Error
}

func (s *Seeder) seedProvider(tx *gorm.DB, seed SeedProvider, report *SeedReport) error {
	var provider models.Provider
	if err := tx.Where("slug = ?", seed.Slug).Limit(1).Find(&provider).Error; err != nil {
		return err
	}
	provider.Slug = seed.Slug
	provider.Name = seed.Name
	provider.IsActive = isActive(seed.Active)

	if err := s.validator.ValidateStruct(&provider); err != nil {
		return err
	}
	if err := tx.Save(&provider).Error; err != nil {
		return err
	}

	for _, m := range seed.Models {
		var model models.AIModel
		if err := tx.Where("provider_id = ? AND slug = ?", provider.ID, m.Slug).Limit(1).Find(&model).Error; err != nil {
			return err
		}
		model.ProviderID = provider.ID
		model.Slug = m.Slug
		model.Name = m.Name
		model.IsDefault = m.Default
		model.IsActive = isActive(m.Active)

		if err := s.validator.ValidateStruct(&model); err != nil {
			return fmt.Errorf("model %q: %w", m.Slug, err)
		}
		if err := tx.Omit(clause.Associations).Save(&model).Error; err != nil {
			return fmt.Errorf("model %q: %w", m.Slug, err)
		}
		report.Models++
	}

	for _, e := range seed.Endpoints {
		schema, err := decodeSchema(&e.Schema)
		if err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		if dups := schema.DuplicateNames(); len(dups) > 0 {
			return fmt.Errorf("endpoint %q: parameter names used in more than one category: %v", e.Name, dups)
		}

		var endpoint models.Endpoint
		if err := tx.Where("provider_id = ? AND name = ?", provider.ID, e.Name).Limit(1).Find(&endpoint).Error; err != nil {
			return err
		}
		endpoint.ProviderID = provider.ID
		endpoint.Name = e.Name
		endpoint.DisplayName = e.DisplayName
		endpoint.URL = e.URL
		endpoint.Schema = schema
		endpoint.IsDefault = e.Default
		endpoint.IsActive = isActive(e.Active)

		if err := s.validator.ValidateStruct(&endpoint); err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		if err := tx.Save(&endpoint).Error; err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		report.Endpoints++
	}

	return nil
}

// seedMappingSet upserts the set and replaces its records, keeping file order as position
func (s *Seeder) seedMappingSet(tx *gorm.DB, seed SeedMappingSet) (int, error) {
	var provider models.Provider
	if err := tx.Where("slug = ?", seed.Provider).First(&provider).Error; err != nil {
		return 0, fmt.Errorf("provider %q: %w", seed.Provider, err)
	}
	var endpoint models.Endpoint
	if err := tx.Where("provider_id = ? AND name = ?", provider.ID, seed.Endpoint).First(&endpoint).Error; err != nil {
		return 0, fmt.Errorf("endpoint %q: %w", seed.Endpoint, err)
	}
	var parameterSet models.ParameterSet
	if err := tx.Where("name = ?", seed.ParameterSet).First(&parameterSet).Error; err != nil {
		return 0, fmt.Errorf("parameter set %q: %w", seed.ParameterSet, err)
	}

	var set models.MappingSet
	if err := tx.Where("endpoint_id = ? AND name = ?", endpoint.ID, seed.Name).Limit(1).Find(&set).Error; err != nil {
		return 0, err
	}
	set.Name = seed.Name
	set.EndpointID = endpoint.ID
	set.ParameterSetID = parameterSet.ID
	set.IsActive = isActive(seed.Active)
	set.Records = nil

	if err := s.validator.ValidateStruct(&set); err != nil {
		return 0, err
	}
	if err := tx.Omit(clause.Associations).Save(&set).Error; err != nil {
		return 0, err
	}

	if err := tx.Where("mapping_set_id = ?", set.ID).Delete(&models.MappingRecord{}).Error; err != nil {
		return 0, err
	}

	for i, r := range seed.Records {
		record := models.MappingRecord{
			MappingSetID:   set.ID,
			Position:       i,
			FromField:      r.FromField,
			ToField:        r.ToField,
			FieldType:      models.FieldType(r.FieldType),
			Transformation: r.Transformation,
		}
		if err := s.validator.ValidateStruct(&record); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	return len(seed.Records), nil
}

func isActive(flag *bool) bool {
	return flag == nil || *flag
}

// decodeSchema converts a YAML schema node to a ParameterSchema without losing key order
func decodeSchema(node *yaml.Node) (models.ParameterSchema, error) {
	var schema models.ParameterSchema
	if node.Kind == 0 {
		return schema, nil
	}

	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, node); err != nil {
		return schema, err
	}
	if err := json.Unmarshal(buf.Bytes(), &schema); err != nil {
		return schema, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

// writeNodeJSON renders a YAML node as JSON, keeping mapping keys in document order
func writeNodeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNodeJSON(buf, node.Content[0])

	case yaml.AliasNode:
		return writeNodeJSON(buf, node.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		var value interface{}
		if err := node.Decode(&value); err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		buf.Write(encoded)
		return nil
	}

	return fmt.Errorf("line %d: unsupported YAML node", node.Line)
}
