// Package list реализует HTTP-обработчик административного списка заявок
// на расчёт цены с фильтрами и пагинацией.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// Handler обрабатывает запросы на получение списка заявок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка заявок.
type Service interface {
	List(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, int, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список заявок на расчёт цены
// @Description Возвращает заявки с фильтрами по статусу, типу компании, дате создания и поисковой строке.
// @Tags Quotes
// @Produce  json
// @Param status query string false "Фильтр по статусу"
// @Param company_type query string false "Фильтр по типу компании"
// @Param start_date query string false "Нижняя граница даты создания (RFC3339)"
// @Param end_date query string false "Верхняя граница даты создания (RFC3339)"
// @Param search query string false "Подстрока в компании, имени, телефоне или почте"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список заявок и общее количество"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /quotes [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quote.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter := parseFilter(r)

	quotes, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list quotes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list quotes"))
		return
	}

	log.Info("list quotes", slog.Int("count", len(quotes)), slog.Int("total", total))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"total":  total,
		"quotes": quotes,
	}))
}

func parseFilter(r *http.Request) models.QuoteFilter {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	filter := models.QuoteFilter{
		Status:      q.Get("status"),
		CompanyType: q.Get("company_type"),
		Search:      q.Get("search"),
		Limit:       limit,
		Offset:      offset,
	}
	if startDate, err := time.Parse(time.RFC3339, q.Get("start_date")); err == nil {
		filter.StartDate = &startDate
	}
	if endDate, err := time.Parse(time.RFC3339, q.Get("end_date")); err == nil {
		filter.EndDate = &endDate
	}
	return filter
}
