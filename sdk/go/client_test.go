package mvrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/handlers"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("success carries the provider payload and route", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/gateway", r.URL.Path)
			assert.Equal(t, "atk_abc.secret", r.Header.Get("X-API-Key"))

			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "auto", body["model"])

			w.Header().Set("X-Request-ID", "req-1")
			w.Header().Set("X-MVRouter-Provider", "openai")
			w.Header().Set("X-MVRouter-Endpoint", "responses")
			w.Header().Set("X-MVRouter-Model", "gpt-4.1")
			_, _ = w.Write([]byte(`{"success":true,"message":"Request completed","data":{"id":"resp_1"}}`))
		}))
		defer server.Close()

		client := NewClient(server.URL+"/", WithAPIKey("atk_abc.secret"))
		envelope, err := client.Invoke(ctx, map[string]interface{}{"model": "auto"})
		require.NoError(t, err)

		assert.True(t, envelope.Success)
		assert.Equal(t, Route{RequestID: "req-1", Provider: "openai", Endpoint: "responses", Model: "gpt-4.1"}, envelope.Route)

		var data map[string]string
		require.NoError(t, envelope.Decode(&data))
		assert.Equal(t, "resp_1", data["id"])
	})

	t.Run("provider errors expose upstream detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"message":"provider returned 429","error":"PROVIDER_ERROR","data":{"provider_status":429,"provider_body":"slow down"}}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Invoke(ctx, map[string]interface{}{"model": "auto"})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Equal(t, CodeProviderError, apiErr.Code)
		assert.Equal(t, 429, apiErr.ProviderStatus)
		assert.Equal(t, "slow down", apiErr.ProviderBody)
		assert.Contains(t, apiErr.Error(), "PROVIDER_ERROR")
	})

	t.Run("non json error bodies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Invoke(ctx, map[string]interface{}{})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "upstream down", apiErr.Message)
		assert.Empty(t, apiErr.Code)
	})
}

func newMappingServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "error"}})
	router := mux.NewRouter()
	handlers.NewMappingHandler(log, services.NewSchemaService(log)).RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestClient_MappingAuthoring(t *testing.T) {
	ctx := context.Background()
	client := NewClient(newMappingServer(t).URL)

	t.Run("validate schema", func(t *testing.T) {
		result, err := client.ValidateSchema(ctx, json.RawMessage(`{
			"headers": {"version": {"type": "string"}},
			"body": {"data": {"version": {"type": "string"}, "prompt": {"type": "text", "required": true}}}
		}`))
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"version"}, result.Duplicates)
		require.Len(t, result.Fields.Body, 2)
		assert.Equal(t, "body.data.prompt", result.Fields.Body[1].Path)
		assert.Equal(t, "string", result.Fields.Body[1].Type)
	})

	t.Run("check types", func(t *testing.T) {
		result, err := client.CheckTypes(ctx, "float", "integer")
		require.NoError(t, err)
		assert.True(t, result.Valid)

		result, err = client.CheckTypes(ctx, "string", "number")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Reason)
	})

	t.Run("check types rejects empty names", func(t *testing.T) {
		_, err := client.CheckTypes(ctx, "", "number")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, CodeBadRequest, apiErr.Code)
	})

	t.Run("compile", func(t *testing.T) {
		result, err := client.Compile(ctx,
			json.RawMessage(`{"body": {"data": {"input": {"type": "array"}}}}`),
			json.RawMessage(`{"body": {"data": {"messages": {"type": "array"}}}}`),
			[]MappingRecord{
				{FromField: "body.data.input", ToField: "body.data.messages", FieldType: "body"},
				{FromField: "body.data.missing", ToField: "body.data.messages", FieldType: "body"},
			},
		)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Problems, 1)
		assert.Contains(t, result.Problems[0], "body.data.missing")
	})

	t.Run("detect url parameters with diff", func(t *testing.T) {
		result, err := client.DetectURLParameters(ctx,
			"https://api.example.com/v1/projects/{project}/runs/:run?verbose=1",
			&URLParameters{Path: []string{"project", "id"}, Query: []string{}},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"project", "run"}, result.Parameters.Path)
		assert.Equal(t, []string{"verbose"}, result.Parameters.Query)
		require.NotNil(t, result.Diff)
		assert.Equal(t, []string{"run"}, result.Diff.AddedPath)
		assert.Equal(t, []string{"id"}, result.Diff.RemovedPath)
	})
}
