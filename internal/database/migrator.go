package database

import (
	"fmt"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// Migrator handles database migrations
type Migrator struct {
	db *Connection
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *Connection) *Migrator {
	return &Migrator{db: db}
}

// TableStatus reports whether a managed table exists
type TableStatus struct {
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
}

// managedModels lists every table in dependency order
func managedModels() []interface{} {
	return []interface{}{
		&models.Provider{},
		&models.AIModel{},
		&models.Endpoint{},
		&models.ParameterSet{},
		&models.MappingSet{},
		&models.MappingRecord{},
		&models.APIToken{},
		&models.RequestLog{},
	}
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	return m.db.AutoMigrate(managedModels()...)
}

// Down drops every managed table, dependents first
func (m *Migrator) Down() error {
	tables := managedModels()
	reversed := make([]interface{}, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		reversed = append(reversed, tables[i])
	}
	return m.db.Migrator().DropTable(reversed...)
}

// Status reports which managed tables exist
func (m *Migrator) Status() ([]TableStatus, error) {
	var status []TableStatus
	for _, model := range managedModels() {
		named, ok := model.(interface{ TableName() string })
		if !ok {
			return nil, fmt.Errorf("model %T has no table name", model)
		}
		status = append(status, TableStatus{
			Table:  named.TableName(),
			Exists: m.db.Migrator().HasTable(model),
		})
	}
	return status, nil
}
