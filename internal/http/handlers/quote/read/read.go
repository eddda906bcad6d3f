// Package read реализует HTTP-обработчик получения заявки
// на расчёт цены по идентификатору.
package read

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
	quotesvc "github.com/magabrotheeeer/lead-intake/internal/services/quote"
)

// Handler обрабатывает запросы на чтение заявки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения заявки.
type Service interface {
	Read(ctx context.Context, id int) (*models.Quote, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить заявку на расчёт цены
// @Tags Quotes
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]any "Данные заявки"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /quotes/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quote.read"
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

	quote, err := h.service.Read(r.Context(), id)
	if err != nil {
		if errors.Is(err, quotesvc.ErrNotFound) {
			log.Info("quote not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quote not found"))
			return
		}
		log.Error("failed to read quote", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read quote"))
		return
	}

	log.Info("success to read quote", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quote": quote,
	}))
}
