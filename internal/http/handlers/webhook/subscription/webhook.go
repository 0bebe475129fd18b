// Package subscription реализует HTTP-обработчик вебхука биллинга.
//
// Handler проверяет подпись X-Api-Signature, разбирает событие смены тарифа
// и запускает выдачу грейс-периода при даунгрейде на бесплатный тариф.
package subscription

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
	grantservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/grant"
)

// Service описывает интерфейс бизнес-логики выдачи грейс-периода.
type Service interface {
	GrantGracePeriod(ctx context.Context, userUID, fromTier, toTier string) (*models.GraceGrant, error)
}

// Handler обрабатывает вебхуки смены подписки.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler с переданным логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Payload структура события биллинга о смене тарифа.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		UserUID  string `json:"user_uid"`
		FromTier string `json:"from_tier"`
		ToTier   string `json:"to_tier"`
	} `json:"object"`
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP обрабатывает вебхук биллинга.
//
// Биллинг доставляет события минимум один раз, поэтому повторы и события,
// не требующие грейс-периода, подтверждаются кодом 200: ретрай их не исправит.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.subscription"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Проверка подписи (в заголовке X-Api-Signature)
	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	const (
		SubscriptionUpdated   = "subscription.updated"
		SubscriptionCancelled = "subscription.cancelled"
	)

	switch strings.ToLower(payload.Event) {
	case SubscriptionUpdated, SubscriptionCancelled:
		_, err := h.service.GrantGracePeriod(r.Context(),
			payload.Object.UserUID, payload.Object.FromTier, payload.Object.ToTier)
		switch {
		case err == nil:
		case errors.Is(err, grantservice.ErrInvalidTransition),
			errors.Is(err, grantservice.ErrNotEligible),
			errors.Is(err, grantservice.ErrAlreadyProcessed):
			log.Info("webhook acknowledged without grant",
				slog.String("user_uid", payload.Object.UserUID),
				slog.String("reason", err.Error()))
		default:
			log.Error("failed to process webhook event", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
	}

	log.Info("webhook processed successfully", slog.String("event", payload.Event),
		slog.String("user_uid", payload.Object.UserUID))
	w.WriteHeader(http.StatusOK)
}
