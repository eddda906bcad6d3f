// Package create реализует HTTP-обработчик публичной формы "запросить
// расчёт цены".
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	validatelib "github.com/magabrotheeeer/lead-intake/internal/lib/validate"
	"github.com/magabrotheeeer/lead-intake/internal/models"
	quotesvc "github.com/magabrotheeeer/lead-intake/internal/services/quote"
)

// Handler управляет HTTP-запросами на создание заявки о расчёте цены.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания заявки.
type Service interface {
	Create(ctx context.Context, req models.DummyQuoteRequest, meta quotesvc.ClientMeta) (*models.Quote, error)
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
// @Summary Запросить расчёт цены
// @Description Регистрирует заявку с веб-формы и уведомляет отдел продаж.
// @Tags Quotes
// @Accept  json
// @Produce  json
// @Param request body models.DummyQuoteRequest true "Данные заявки"
// @Success 200 {object} map[string]any "ID созданной заявки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /quotes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quote.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("company", req.CompanyName))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	meta := quotesvc.ClientMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
	quote, err := h.service.Create(r.Context(), req, meta)
	if err != nil {
		log.Error("failed to create quote", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create quote"))
		return
	}

	log.Info("success to create quote", slog.Int("id", quote.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": quote.ID,
	}))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
