// Package stats реализует HTTP-обработчик сводной статистики по
// заявкам на пробный доступ.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// Handler обрабатывает запросы сводной статистики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики статистики.
type Service interface {
	StatsOverview(ctx context.Context) (*models.TrialOverview, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить сводную статистику по пробным заявкам
// @Tags Trials
// @Produce  json
// @Success 200 {object} map[string]any "Сводная статистика"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /trials/stats/overview [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.stats"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	overview, err := h.service.StatsOverview(r.Context())
	if err != nil {
		log.Error("failed to read trial statistics", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read trial statistics"))
		return
	}

	log.Info("success to read trial statistics")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"overview": overview,
	}))
}
