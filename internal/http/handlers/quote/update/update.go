// Package update реализует HTTP-обработчик административного обновления
// заявки на расчёт цены.
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
	quotesvc "github.com/magabrotheeeer/lead-intake/internal/services/quote"
)

// Handler обрабатывает запросы на обновление заявки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления заявки.
type Service interface {
	Update(ctx context.Context, id int, req models.DummyQuoteUpdate) (*models.Quote, error)
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
// @Summary Обновить заявку на расчёт цены
// @Description Обновляет статус, менеджера, заметки и цену. Пустые поля не изменяются.
// @Tags Quotes
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body models.DummyQuoteUpdate true "Изменяемые поля"
// @Success 200 {object} map[string]any "Обновлённая заявка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /quotes/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quote.update"
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

	var req models.DummyQuoteUpdate
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

	quote, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, quotesvc.ErrNotFound) {
			log.Info("quote not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quote not found"))
			return
		}
		log.Error("failed to update quote", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update quote"))
		return
	}

	log.Info("success to update quote", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quote": quote,
	}))
}
