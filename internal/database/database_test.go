package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const exampleCatalog = "../../deployments/catalog.yaml"

func newTestConnection(t *testing.T) *Connection {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := Open(sqlite.Open(dsn), &ConnectionPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, NewMigrator(conn).Up())
	return conn
}

func newTestSeeder(conn *Connection) *Seeder {
	log := logger.NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "error"}})
	return NewSeeder(conn.DB, models.NewValidationService(), log)
}

func countRows(t *testing.T, conn *Connection, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestMigrator(t *testing.T) {
	conn := newTestConnection(t)
	migrator := NewMigrator(conn)

	status, err := migrator.Status()
	require.NoError(t, err)
	require.Len(t, status, 8)
	assert.Equal(t, "providers", status[0].Table)
	for _, table := range status {
		assert.True(t, table.Exists, table.Table)
	}

	require.NoError(t, migrator.Down())

	status, err = migrator.Status()
	require.NoError(t, err)
	for _, table := range status {
		assert.False(t, table.Exists, table.Table)
	}

	require.NoError(t, conn.Ping(context.Background()))
}

func TestSeeder_ExampleCatalog(t *testing.T) {
	ctx := context.Background()
	conn := newTestConnection(t)
	seeder := newTestSeeder(conn)

	report, err := seeder.SeedFile(ctx, exampleCatalog)
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{
		Providers:     3,
		Models:        4,
		Endpoints:     3,
		ParameterSets: 1,
		MappingSets:   3,
		Records:       12,
	}, report)

	t.Run("schemas keep catalog order", func(t *testing.T) {
		var chat models.ParameterSet
		require.NoError(t, conn.Where("name = ?", "chat").First(&chat).Error)
		assert.Equal(t, []string{"messages", "temperature", "max_tokens", "system", "model"}, chat.Schema.Body.Data.Names())
		assert.Equal(t, 0.7, chat.Defaults["temperature"])

		messages, ok := chat.Schema.Body.Data.Get("messages")
		require.True(t, ok)
		assert.Equal(t, models.TypeArray, messages.Type)
		assert.True(t, messages.Required)
	})

	t.Run("records keep file order", func(t *testing.T) {
		var set models.MappingSet
		require.NoError(t, conn.Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("name = ?", "gemini-generate-chat").First(&set).Error)
		require.Len(t, set.Records, 4)
		assert.Equal(t, "parameters.model", set.Records[0].FromField)
		assert.Equal(t, models.FieldTypeParameter, set.Records[0].FieldType)
		assert.Equal(t, 3, set.Records[3].Position)
	})

	t.Run("every example mapping set compiles", func(t *testing.T) {
		log := logger.NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "error"}})
		schemaSvc := services.NewSchemaService(log)

		var sets []models.MappingSet
		require.NoError(t, conn.Preload("Records").Find(&sets).Error)
		require.Len(t, sets, 3)

		for _, set := range sets {
			var endpoint models.Endpoint
			require.NoError(t, conn.First(&endpoint, "id = ?", set.EndpointID).Error)
			var canonical models.ParameterSet
			require.NoError(t, conn.First(&canonical, "id = ?", set.ParameterSetID).Error)

			report, err := schemaSvc.CompileMappingSet(ctx, endpoint.Schema, canonical.Schema, set.Records)
			assert.NoError(t, err, set.Name)
			assert.Empty(t, report.Problems, set.Name)
		}
	})

	t.Run("seeding twice updates in place", func(t *testing.T) {
		_, err := seeder.SeedFile(ctx, exampleCatalog)
		require.NoError(t, err)

		assert.Equal(t, int64(3), countRows(t, conn, &models.Provider{}))
		assert.Equal(t, int64(4), countRows(t, conn, &models.AIModel{}))
		assert.Equal(t, int64(3), countRows(t, conn, &models.MappingSet{}))
		assert.Equal(t, int64(12), countRows(t, conn, &models.MappingRecord{}))
	})
}

func TestSeeder_Rejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "unknown field type",
			doc: `
parameter_sets:
  - name: chat
    schema: {body: {data: {prompt: {type: string}}}}
providers:
  - slug: acme
    name: Acme
    endpoints:
      - name: run
        url: https://api.acme.test/run
        schema: {body: {data: {input: {type: string}}}}
mapping_sets:
  - name: acme-chat
    provider: acme
    endpoint: run
    parameter_set: chat
    records:
      - {fromField: body.data.input, toField: body.data.prompt, fieldType: cookie}
`,
			wantErr: "record 1",
		},
		{
			name: "parameter name in two categories",
			doc: `
providers:
  - slug: acme
    name: Acme
    endpoints:
      - name: run
        url: https://api.acme.test/run
        schema:
          headers: {version: {type: string}}
          query: {version: {type: string}}
`,
			wantErr: "more than one category",
		},
		{
			name: "mapping set for an unknown endpoint",
			doc: `
parameter_sets:
  - name: chat
providers:
  - slug: acme
    name: Acme
mapping_sets:
  - name: acme-chat
    provider: acme
    endpoint: missing
    parameter_set: chat
`,
			wantErr: `endpoint "missing"`,
		},
		{
			name: "provider without a name",
			doc: `
providers:
  - slug: acme
`,
			wantErr: "name",
		},
		{
			name:    "not yaml",
			doc:     "providers: [",
			wantErr: "failed to parse seed file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newTestConnection(t)

			_, err := newTestSeeder(conn).Seed(ctx, []byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			assert.Equal(t, int64(0), countRows(t, conn, &models.Provider{}), "transaction must roll back")
		})
	}
}

func TestWriteNodeJSON_KeepsKeyOrder(t *testing.T) {
	var catalog SeedCatalog
	require.NoError(t, yaml.Unmarshal([]byte(`
parameter_sets:
  - name: ordered
    schema:
      query:
        zeta: {type: string}
        alpha: {type: integer, required: true}
        mid: {type: boolean}
`), &catalog))

	schema, err := decodeSchema(&catalog.ParameterSets[0].Schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, schema.Query.Names())

	alpha, ok := schema.Query.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, models.TypeNumber, alpha.Type)
	assert.True(t, alpha.Required)

	scalar := catalog.ParameterSets[0].Schema.Content[0]
	_, err = decodeSchema(scalar)
	assert.Error(t, err, "a bare scalar is not a schema")

	empty, err := decodeSchema(&yaml.Node{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Query.Len())
}
