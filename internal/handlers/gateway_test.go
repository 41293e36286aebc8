package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/middleware"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGatewayHandler_HandleInvoke(t *testing.T) {
	caller := &models.Caller{ID: "caller-1", Method: models.AuthMethodAPIToken}
	ctx := middleware.WithCaller(context.Background(), caller)

	body := map[string]interface{}{
		"provider":          "openai",
		"provider_function": "responses",
		"model":             "gpt-4.1",
		"messages":          []interface{}{map[string]interface{}{"role": "user", "content": "hello"}},
	}

	t.Run("success wraps the provider payload", func(t *testing.T) {
		gateway := &MockAPIGatewayService{}
		gateway.On("HandleRequest", mock.Anything, caller, "", body).Return(&services.GatewayResult{
			State:      models.StateSucceeded,
			Provider:   "openai",
			Endpoint:   "responses",
			Model:      "gpt-4.1",
			StatusCode: http.StatusOK,
			Data:       map[string]interface{}{"id": "resp_1"},
		}, nil)
		handler := NewGatewayHandler(createTestLogger(), gateway)

		rec := postJSON(t, handler.HandleInvoke, ctx, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "openai", rec.Header().Get(HeaderProvider))
		assert.Equal(t, "gpt-4.1", rec.Header().Get(HeaderModel))

		var data map[string]interface{}
		envelope := decodeEnvelope(t, rec, &data)
		assert.True(t, envelope.Success)
		assert.Empty(t, envelope.Error)
		assert.Equal(t, "resp_1", data["id"])
		gateway.AssertExpectations(t)
	})

	t.Run("error codes map to status codes", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
			code   string
		}{
			{services.NewBadRequestError("field 'model' failed validation", nil), http.StatusBadRequest, "BAD_REQUEST"},
			{services.NewUnauthorizedError("caller credential is missing or invalid"), http.StatusUnauthorized, "UNAUTHORIZED"},
			{services.NewNotFoundError("provider", "acme"), http.StatusNotFound, "NOT_FOUND"},
			{services.NewConfigurationError("endpoint URL is missing", nil), http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		}

		for _, tt := range tests {
			gateway := &MockAPIGatewayService{}
			gateway.On("HandleRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			handler := NewGatewayHandler(createTestLogger(), gateway)

			rec := postJSON(t, handler.HandleInvoke, ctx, body)
			assert.Equal(t, tt.status, rec.Code)

			envelope := decodeEnvelope(t, rec, nil)
			assert.False(t, envelope.Success)
			assert.Equal(t, tt.code, envelope.Error)
			assert.NotEmpty(t, envelope.Message)
		}
	})

	t.Run("provider error keeps upstream status and body", func(t *testing.T) {
		gateway := &MockAPIGatewayService{}
		gateway.On("HandleRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.NewProviderError("provider returned 429: slow down", 429, `{"error":{"message":"slow down"}}`))
		handler := NewGatewayHandler(createTestLogger(), gateway)

		rec := postJSON(t, handler.HandleInvoke, ctx, body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var data ProviderErrorData
		envelope := decodeEnvelope(t, rec, &data)
		assert.Equal(t, "PROVIDER_ERROR", envelope.Error)
		assert.Equal(t, 429, data.ProviderStatus)
		assert.Equal(t, `{"error":{"message":"slow down"}}`, data.ProviderBody)
	})

	t.Run("non-object body is a bad request", func(t *testing.T) {
		gateway := &MockAPIGatewayService{}
		handler := NewGatewayHandler(createTestLogger(), gateway)

		for _, raw := range []string{"[1,2]", "not json", "null"} {
			rec := postJSON(t, handler.HandleInvoke, ctx, raw)
			assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
			assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, rec, nil).Error)
		}
		gateway.AssertNotCalled(t, "HandleRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("trailing data after the body is a bad request", func(t *testing.T) {
		gateway := &MockAPIGatewayService{}
		handler := NewGatewayHandler(createTestLogger(), gateway)

		for _, raw := range []string{`{"model":"auto"} garbage`, `{"model":"auto"}{"model":"gpt-4.1"}`} {
			rec := postJSON(t, handler.HandleInvoke, ctx, raw)
			assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
			assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, rec, nil).Error)
		}
		gateway.AssertNotCalled(t, "HandleRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("trailing whitespace is accepted", func(t *testing.T) {
		gateway := &MockAPIGatewayService{}
		gateway.On("HandleRequest", mock.Anything, mock.Anything, mock.Anything, map[string]interface{}{"model": "auto"}).
			Return(&services.GatewayResult{Provider: "openai", Endpoint: "responses", Model: "gpt-4.1", Data: map[string]interface{}{}}, nil)
		handler := NewGatewayHandler(createTestLogger(), gateway)

		rec := postJSON(t, handler.HandleInvoke, ctx, "{\"model\":\"auto\"}\n")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
