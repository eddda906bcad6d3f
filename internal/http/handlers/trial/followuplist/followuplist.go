// Package followuplist реализует HTTP-обработчик получения списка
// записей о контактах с клиентом пробной заявки.
package followuplist

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
	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// Handler обрабатывает запросы на получение списка контактов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики работы с контактами.
type Service interface {
	ListFollowUps(ctx context.Context, id int) ([]*models.FollowUp, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить список контактов с клиентом
// @Description Записи возвращаются в порядке добавления.
// @Tags Trials
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]any "Список записей"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /trials/{id}/followups [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.followuplist"
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

	followUps, err := h.service.ListFollowUps(r.Context(), id)
	if err != nil {
		if errors.Is(err, trialsvc.ErrNotFound) {
			log.Info("trial not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial not found"))
			return
		}
		log.Error("failed to list follow-ups", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list follow-ups"))
		return
	}

	log.Info("success to list follow-ups", slog.Int("trial_id", id), slog.Int("count", len(followUps)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"followups": followUps,
	}))
}
