package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Provider{},
		&models.AIModel{},
		&models.Endpoint{},
		&models.ParameterSet{},
		&models.MappingSet{},
		&models.MappingRecord{},
		&models.APIToken{},
		&models.RequestLog{},
	))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type catalogFixture struct {
	provider     models.Provider
	model        models.AIModel
	endpoint     models.Endpoint
	parameterSet models.ParameterSet
}

func seedCatalog(t *testing.T, db *gorm.DB) catalogFixture {
	t.Helper()

	f := catalogFixture{
		provider: models.Provider{Slug: "openai", Name: "OpenAI", IsActive: true},
	}
	require.NoError(t, db.Create(&f.provider).Error)

	f.model = models.AIModel{ProviderID: f.provider.ID, Slug: "gpt-4.1", Name: "GPT 4.1", IsDefault: true, IsActive: true}
	require.NoError(t, db.Create(&f.model).Error)

	f.endpoint = models.Endpoint{
		ProviderID:  f.provider.ID,
		Name:        "responses",
		DisplayName: "Responses",
		URL:         "https://api.openai.com/v1/responses",
		Schema: models.ParameterSchema{
			Body: models.BodySpec{
				Kind: models.BodyKindJSON,
				Data: models.NewFieldSet(models.ParameterField{Name: "input", Type: models.TypeArray, Required: true}),
			},
		},
		IsDefault: true,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&f.endpoint).Error)

	f.parameterSet = models.ParameterSet{
		Name:     "chat",
		Defaults: models.JSONMap{"temperature": 0.7},
	}
	require.NoError(t, db.Create(&f.parameterSet).Error)

	return f
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	fixture := seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	t.Run("provider by slug", func(t *testing.T) {
		provider, err := repo.GetProviderBySlug(ctx, "openai")
		require.NoError(t, err)
		require.NotNil(t, provider)
		assert.Equal(t, fixture.provider.ID, provider.ID)

		missing, err := repo.GetProviderBySlug(ctx, "nobody")
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("inactive provider is not found", func(t *testing.T) {
		inactive := models.Provider{Slug: "retired", Name: "Retired", IsActive: false}
		require.NoError(t, db.Create(&inactive).Error)

		provider, err := repo.GetProviderBySlug(ctx, "retired")
		assert.NoError(t, err)
		assert.Nil(t, provider)
	})

	t.Run("model and default model", func(t *testing.T) {
		model, err := repo.GetModel(ctx, fixture.provider.ID, "gpt-4.1")
		require.NoError(t, err)
		require.NotNil(t, model)
		assert.Equal(t, "GPT 4.1", model.Name)

		def, err := repo.GetDefaultModel(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, def)
		require.NotNil(t, def.Provider)
		assert.Equal(t, "openai", def.Provider.Slug)

		scoped, err := repo.GetDefaultModel(ctx, fixture.provider.ID)
		require.NoError(t, err)
		require.NotNil(t, scoped)
		assert.Equal(t, def.ID, scoped.ID)

		none, err := repo.GetDefaultModel(ctx, uuid.NewString())
		assert.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("endpoint keeps its schema", func(t *testing.T) {
		endpoint, err := repo.GetEndpoint(ctx, fixture.provider.ID, "responses")
		require.NoError(t, err)
		require.NotNil(t, endpoint)

		field, ok := endpoint.Schema.Body.Data.Get("input")
		require.True(t, ok)
		assert.Equal(t, models.TypeArray, field.Type)
		assert.True(t, field.Required)

		def, err := repo.GetDefaultEndpoint(ctx, fixture.provider.ID)
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, endpoint.ID, def.ID)

		missing, err := repo.GetEndpoint(ctx, fixture.provider.ID, "embeddings")
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("parameter set defaults", func(t *testing.T) {
		set, err := repo.GetParameterSet(ctx, fixture.parameterSet.ID)
		require.NoError(t, err)
		require.NotNil(t, set)
		assert.Equal(t, 0.7, set.Defaults["temperature"])
	})

	t.Run("first active mapping set with ordered records", func(t *testing.T) {
		inactive := models.MappingSet{Name: "draft", EndpointID: fixture.endpoint.ID, ParameterSetID: fixture.parameterSet.ID}
		require.NoError(t, db.Create(&inactive).Error)

		first := models.MappingSet{
			Name:           "v1",
			EndpointID:     fixture.endpoint.ID,
			ParameterSetID: fixture.parameterSet.ID,
			IsActive:       true,
			Records: []models.MappingRecord{
				{Position: 2, FromField: "body.data.temperature", ToField: "body.data.temperature", FieldType: models.FieldTypeBody},
				{Position: 1, FromField: "body.data.input", ToField: "body.data.messages", FieldType: models.FieldTypeBody},
			},
		}
		require.NoError(t, db.Create(&first).Error)

		second := models.MappingSet{
			Name:           "v2",
			EndpointID:     fixture.endpoint.ID,
			ParameterSetID: fixture.parameterSet.ID,
			IsActive:       true,
			CreatedAt:      first.CreatedAt.Add(time.Minute),
		}
		require.NoError(t, db.Create(&second).Error)

		set, err := repo.GetActiveMappingSet(ctx, fixture.endpoint.ID)
		require.NoError(t, err)
		require.NotNil(t, set)
		assert.Equal(t, first.ID, set.ID)
		require.Len(t, set.Records, 2)
		assert.Equal(t, "body.data.input", set.Records[0].FromField)
		assert.Equal(t, "body.data.temperature", set.Records[1].FromField)
	})

	t.Run("no active mapping set", func(t *testing.T) {
		set, err := repo.GetActiveMappingSet(ctx, uuid.NewString())
		assert.NoError(t, err)
		assert.Nil(t, set)
	})
}

func TestAPITokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPITokenRepository(newTestDB(t))

	token := &models.APIToken{Name: "ci", Prefix: "abc123", SecretHash: "hash", Subject: "user-1", IsActive: true}
	require.NoError(t, repo.Create(ctx, token))
	assert.NotEmpty(t, token.ID)

	found, err := repo.GetByPrefix(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "user-1", found.Subject)
	assert.Nil(t, found.LastUsedAt)

	require.NoError(t, repo.TouchLastUsed(ctx, token.ID))
	found, err = repo.GetByPrefix(ctx, "abc123")
	require.NoError(t, err)
	assert.NotNil(t, found.LastUsedAt)

	missing, err := repo.GetByPrefix(ctx, "zzz")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRequestLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestLogRepository(newTestDB(t))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		log := &models.RequestLog{
			RequestID: fmt.Sprintf("req-%d", i),
			CallerID:  fmt.Sprintf("caller-%d", i%2),
			Provider:  "openai",
			State:     models.StateSucceeded,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, log))
	}

	log, err := repo.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.True(t, log.IsSuccess())

	recent, err := repo.GetRecent(ctx, "", 2, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "req-2", recent[0].RequestID)
	assert.Equal(t, "req-1", recent[1].RequestID)

	mine, err := repo.GetRecent(ctx, "caller-0", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "req-2", mine[0].RequestID)
	assert.Equal(t, "req-0", mine[1].RequestID)

	missing, err := repo.GetByRequestID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
