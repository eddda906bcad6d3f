// Package access реализует HTTP-обработчик проверки доступа к пробному
// аккаунту по имени пользователя. Используется страницей входа пробной
// системы перед выдачей сессии.
package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lead-intake/internal/http/response"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// Handler обрабатывает запросы на проверку доступа к пробному аккаунту.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики проверки доступа.
type Service interface {
	ValidateAccess(ctx context.Context, username string) (*models.Trial, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить доступ к пробному аккаунту
// @Description Возвращает сведения о заявке, если аккаунт активен и срок не истёк.
// @Tags Trials
// @Produce  json
// @Param username path string true "Имя пробного аккаунта"
// @Success 200 {object} map[string]any "Сведения о заявке"
// @Failure 403 {object} response.ErrorResponse "Аккаунт неактивен или срок истёк"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials/access/{username} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.access"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username := chi.URLParam(r, "username")

	trial, err := h.service.ValidateAccess(r.Context(), username)
	if err != nil {
		switch {
		case errors.Is(err, trialsvc.ErrNotFound):
			log.Info("trial account not found", slog.String("username", username))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("trial account not found"))
		case errors.Is(err, trialsvc.ErrAccessDenied):
			log.Info("trial access denied", slog.String("username", username))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("trial account is not active or has expired"))
		default:
			log.Error("failed to validate trial access", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not validate trial access"))
		}
		return
	}

	log.Info("trial access validated", slog.String("username", username))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":             trial.ID,
		"company_name":   trial.CompanyName,
		"trial_end_date": trial.TrialEndDate,
		"status":         trial.Status,
	}))
}
