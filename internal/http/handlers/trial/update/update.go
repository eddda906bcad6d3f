// Package update реализует HTTP-обработчик административного обновления
// заявки на пробный доступ: смена статуса и сохранение отзыва клиента.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	validatelib "github.com/magabrotheeeer/lead-intake/internal/lib/validate"
	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// Handler обрабатывает запросы на обновление заявки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления заявки.
type Service interface {
	Update(ctx context.Context, id int, req models.DummyTrialUpdate) (*models.Trial, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validatelib.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить заявку на пробный доступ
// @Description Меняет статус заявки и сохраняет отзыв клиента. При включённой строгой проверке недопустимый переход отклоняется.
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body models.DummyTrialUpdate true "Изменяемые поля"
// @Success 200 {object} map[string]any "Обновлённая заявка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или недопустимый переход статуса"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /trials/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req models.DummyTrialUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if req.Feedback != nil {
		if err := h.validate.Struct(req.Feedback); err != nil {
			log.Error("feedback validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
			return
		}
	}

	trial, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, trialsvc.ErrNotFound):
			log.Info("trial not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial not found"))
		case errors.Is(err, trialsvc.ErrInvalidTransition):
			log.Info("invalid status transition", slog.Int("id", id), slog.String("to", req.Status))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to update trial", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update trial"))
		}
		return
	}

	log.Info("success to update trial", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"trial": trial,
	}))
}
