// Package convert реализует HTTP-обработчик перевода пробной заявки
// в оплаченного клиента.
package convert

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

// Handler обрабатывает запросы на конвертацию пробной заявки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики конвертации.
type Service interface {
	Convert(ctx context.Context, id int, quoteID *int) error
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
// @Summary Перевести пробную заявку в оплаченного клиента
// @Description Повторная конвертация уже сконвертированной заявки идемпотентна.
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body models.DummyConvert true "Ссылка на заявку о цене"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 422 {object} response.ErrorResponse "Переход статуса запрещён"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /trials/{id}/convert [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.convert"
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

	var req models.DummyConvert
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

	if err := h.service.Convert(r.Context(), id, req.QuoteID); err != nil {
		switch {
		case errors.Is(err, trialsvc.ErrNotFound):
			log.Info("trial not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial not found"))
		case errors.Is(err, trialsvc.ErrInvalidTransition):
			log.Info("invalid status transition", slog.Int("id", id))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to convert trial", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not convert trial"))
		}
		return
	}

	log.Info("success to convert trial", slog.Int("id", id))
	render.JSON(w, r, response.OK())
}
