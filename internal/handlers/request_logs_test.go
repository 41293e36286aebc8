package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/middleware"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRequestLogRepository is a mock implementation of RequestLogRepository
type MockRequestLogRepository struct {
	mock.Mock
}

func (m *MockRequestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRequestLogRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RequestLog, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RequestLog), args.Error(1)
}

func (m *MockRequestLogRepository) GetRecent(ctx context.Context, callerID string, limit, offset int) ([]*models.RequestLog, error) {
	args := m.Called(ctx, callerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RequestLog), args.Error(1)
}

func TestRequestLogHandler(t *testing.T) {
	caller := &models.Caller{ID: "caller-1", Method: models.AuthMethodAPIToken}

	repo := &MockRequestLogRepository{}
	repo.On("GetByRequestID", mock.Anything, "req-mine").
		Return(&models.RequestLog{RequestID: "req-mine", CallerID: "caller-1", State: models.StateSucceeded}, nil)
	repo.On("GetByRequestID", mock.Anything, "req-theirs").
		Return(&models.RequestLog{RequestID: "req-theirs", CallerID: "caller-2", State: models.StateSucceeded}, nil)
	repo.On("GetByRequestID", mock.Anything, "req-broken").Return(nil, errors.New("connection reset"))
	repo.On("GetByRequestID", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("GetRecent", mock.Anything, "caller-1", 10, 20).
		Return([]*models.RequestLog{{RequestID: "req-2", CallerID: "caller-1"}, {RequestID: "req-1", CallerID: "caller-1"}}, nil)
	repo.On("GetRecent", mock.Anything, "caller-1", defaultPageLimit, 0).Return([]*models.RequestLog{}, nil)

	router := mux.NewRouter()
	NewRequestLogHandler(createTestLogger(), repo).RegisterRoutes(router)

	get := func(path string, caller *models.Caller) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if caller != nil {
			req = req.WithContext(middleware.WithCaller(req.Context(), caller))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("own request", func(t *testing.T) {
		rec := get("/requests/req-mine", caller)
		require.Equal(t, http.StatusOK, rec.Code)

		var log models.RequestLog
		envelope := decodeEnvelope(t, rec, &log)
		assert.True(t, envelope.Success)
		assert.Equal(t, "req-mine", log.RequestID)
		assert.Equal(t, models.StateSucceeded, log.State)
	})

	t.Run("other callers and unknown ids are not found", func(t *testing.T) {
		for _, id := range []string{"req-theirs", "req-unknown"} {
			rec := get("/requests/"+id, caller)
			assert.Equal(t, http.StatusNotFound, rec.Code, id)

			envelope := decodeEnvelope(t, rec, nil)
			assert.Equal(t, "NOT_FOUND", envelope.Error)
			assert.Equal(t, "request not found: "+id, envelope.Message)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		rec := get("/requests/req-broken", caller)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("list with pagination", func(t *testing.T) {
		rec := get("/requests?limit=10&offset=20", caller)
		require.Equal(t, http.StatusOK, rec.Code)

		var logs []models.RequestLog
		decodeEnvelope(t, rec, &logs)
		require.Len(t, logs, 2)
		assert.Equal(t, "req-2", logs[0].RequestID)
	})

	t.Run("out of range pagination falls back to defaults", func(t *testing.T) {
		rec := get("/requests?limit=5000&offset=-3", caller)
		assert.Equal(t, http.StatusOK, rec.Code)
		repo.AssertCalled(t, "GetRecent", mock.Anything, "caller-1", defaultPageLimit, 0)
	})

	t.Run("no caller", func(t *testing.T) {
		rec := get("/requests", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
