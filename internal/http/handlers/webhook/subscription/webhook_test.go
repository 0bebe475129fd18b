package subscription

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
	grantservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/grant"
)

// MockService реализует интерфейс subscription.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GrantGracePeriod(ctx context.Context, userUID, fromTier, toTier string) (*models.GraceGrant, error) {
	args := m.Called(ctx, userUID, fromTier, toTier)
	if res := args.Get(0); res != nil {
		return res.(*models.GraceGrant), args.Error(1)
	}
	return nil, args.Error(1)
}

const testSecret = "webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cancelledBody := []byte(`{"event":"subscription.cancelled","object":{"user_uid":"uid-1","from_tier":"premium","to_tier":"free"}}`)

	tests := []struct {
		name           string
		body           []byte
		signature      string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:      "даунгрейд выдает грейс-период",
			body:      cancelledBody,
			signature: sign(cancelledBody),
			setupMock: func(m *MockService) {
				m.On("GrantGracePeriod", mock.Anything, "uid-1", "premium", "free").
					Return(&models.GraceGrant{UserUID: "uid-1"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "отсутствующая подпись отклоняется",
			body:           cancelledBody,
			signature:      "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "неверная подпись отклоняется",
			body:           cancelledBody,
			signature:      "bm90LXZhbGlk",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "битый JSON отклоняется",
			body:           []byte(`{not json`),
			signature:      sign([]byte(`{not json`)),
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "повтор события подтверждается без выдачи",
			body:      cancelledBody,
			signature: sign(cancelledBody),
			setupMock: func(m *MockService) {
				m.On("GrantGracePeriod", mock.Anything, "uid-1", "premium", "free").
					Return(nil, grantservice.ErrAlreadyProcessed)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "апгрейд подтверждается без выдачи",
			body:      cancelledBody,
			signature: sign(cancelledBody),
			setupMock: func(m *MockService) {
				m.On("GrantGracePeriod", mock.Anything, "uid-1", "premium", "free").
					Return(nil, grantservice.ErrInvalidTransition)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "ошибка хранилища возвращает 500 для ретрая",
			body:      cancelledBody,
			signature: sign(cancelledBody),
			setupMock: func(m *MockService) {
				m.On("GrantGracePeriod", mock.Anything, "uid-1", "premium", "free").
					Return(nil, errors.New("db unreachable"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "чужое событие игнорируется",
			body:           []byte(`{"event":"payment.succeeded","object":{}}`),
			signature:      sign([]byte(`{"event":"payment.succeeded","object":{}}`)),
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, testSecret)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/subscription", bytes.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set("X-Api-Signature", tt.signature)
			}

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			mockService.AssertExpectations(t)
		})
	}
}
