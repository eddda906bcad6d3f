// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/storage/repository"
)

// Handler обрабатывает запросы проверки готовности.
type Handler struct {
	log     *slog.Logger
	storage *repository.Storage
}

// New создает новый Handler с переданными логгером и хранилищем.
func New(log *slog.Logger, storage *repository.Storage) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP godoc
// @Summary Проверить готовность сервиса
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]any "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := repository.CheckDatabaseReady(h.storage); err != nil {
		h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
