// Package status реализует HTTP-обработчик для получения статуса хранилища аккаунта.
//
// Handler извлекает uid из URL-параметров, вызывает бизнес-логику для вычисления
// производного статуса и возвращает его в JSON-формате.
//
// В случае ошибок формирует соответствующие HTTP-ответы с описанием проблемы.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storage-quota-engine/internal/http/response"
	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// Handler обрабатывает запросы на получение статуса хранилища аккаунта.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики вычисления статуса
	validate *validator.Validate // Валидатор для uid из URL
}

// Service описывает интерфейс бизнес-логики статуса хранилища.
type Service interface {
	GetStorageStatus(ctx context.Context, userUID string) (*models.StorageStatus, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на получение статуса хранилища.
//
// @Summary Статус хранилища аккаунта
// @Description Возвращает производный статус хранилища: активная подписка, грейс-период или истекшее окно.
// @Tags storage
// @Produce json
// @Param uid path string true "UID аккаунта"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/storage/status/{uid} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storage.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")
	if err := h.validate.Var(uid, "required,uuid"); err != nil {
		log.Error("invalid uid in url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid uid in url"))
		return
	}

	res, err := h.service.GetStorageStatus(r.Context(), uid)
	if err != nil {
		log.Error("failed to get storage status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get storage status"))
		return
	}

	log.Info("success to get storage status", slog.String("user_uid", uid),
		slog.String("status", string(res.Status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"storage_status": res,
	}))
}
