// Package followupadd реализует HTTP-обработчик добавления записи
// о контакте с клиентом пробной заявки.
package followupadd

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

// Handler обрабатывает запросы на добавление записи о контакте.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики работы с контактами.
type Service interface {
	AddFollowUp(ctx context.Context, id int, req models.DummyFollowUp) (*models.FollowUp, error)
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
// @Summary Добавить запись о контакте с клиентом
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body models.DummyFollowUp true "Данные контакта"
// @Success 200 {object} map[string]any "Созданная запись"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /trials/{id}/followups [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.followupadd"
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

	var req models.DummyFollowUp
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

	followUp, err := h.service.AddFollowUp(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, trialsvc.ErrNotFound) {
			log.Info("trial not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial not found"))
			return
		}
		log.Error("failed to add follow-up", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not add follow-up"))
		return
	}

	log.Info("success to add follow-up", slog.Int("trial_id", id), slog.Int("followup_id", followUp.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"followup": followUp,
	}))
}
