package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestLogger() *logger.Logger {
	return logger.NewLogger(&config.Config{
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	})
}

// MockAPIGatewayService is a mock implementation of APIGatewayService
type MockAPIGatewayService struct {
	mock.Mock
}

func (m *MockAPIGatewayService) HandleRequest(ctx context.Context, caller *models.Caller, requestID string, body map[string]interface{}) (*services.GatewayResult, error) {
	args := m.Called(ctx, caller, requestID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GatewayResult), args.Error(1)
}

func postJSON(t *testing.T, handler http.HandlerFunc, ctx context.Context, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	switch v := body.(type) {
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test", bytes.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// decodeEnvelope decodes the recorder body; data is decoded into dest when given
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) models.Envelope {
	t.Helper()

	var envelope struct {
		models.Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if dest != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return envelope.Envelope
}
