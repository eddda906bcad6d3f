// Package login реализует HTTP-обработчик фиксации входа в пробный аккаунт.
package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// Handler обрабатывает запросы на фиксацию входа в пробный аккаунт.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики фиксации входа.
type Service interface {
	RecordLogin(ctx context.Context, id int) (int, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Зафиксировать вход в пробный аккаунт
// @Description Увеличивает счётчик входов активного аккаунта с неистёкшим сроком.
// @Tags Trials
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]any "Новое значение счётчика входов"
// @Failure 403 {object} response.ErrorResponse "Аккаунт неактивен или срок истёк"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials/{id}/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.login"
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

	count, err := h.service.RecordLogin(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, trialsvc.ErrNotFound):
			log.Info("trial not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial not found"))
		case errors.Is(err, trialsvc.ErrAccessDenied):
			log.Info("login rejected", slog.Int("id", id))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("trial account is not active or has expired"))
		default:
			log.Error("failed to record login", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not record login"))
		}
		return
	}

	log.Info("login recorded", slog.Int("id", id), slog.Int("login_count", count))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"login_count": count,
	}))
}
