package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// MockService реализует интерфейс status.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GetStorageStatus(ctx context.Context, userUID string) (*models.StorageStatus, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.StorageStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const uid = "0b7aaec6-0df7-47e5-9f72-0cbbdcc5b6bd"

	tests := []struct {
		name           string
		uid            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное чтение статуса в грейс-периоде",
			uid:  uid,
			setupMock: func(m *MockService) {
				m.On("GetStorageStatus", mock.Anything, uid).Return(&models.StorageStatus{
					Status:        models.StateGracePeriod,
					DaysRemaining: 42,
					CanUpload:     false,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"grace_period"`,
		},
		{
			name:           "некорректный uid в URL",
			uid:            "not-a-uuid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid uid in url"}`,
		},
		{
			name: "ошибка сервиса статуса",
			uid:  uid,
			setupMock: func(m *MockService) {
				m.On("GetStorageStatus", mock.Anything, uid).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not get storage status"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/status/"+tt.uid, nil)
			// Устанавливаем URL params с помощью роутера chi
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", tt.uid)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
