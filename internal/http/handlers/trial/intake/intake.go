// Package intake реализует HTTP-обработчик публичной формы "запросить
// пробный доступ".
//
// Handler принимает JSON-запрос с данными компании, валидирует их, передаёт
// бизнес-логике регистрацию заявки и возвращает сгенерированные учётные
// данные пробного аккаунта в JSON-формате.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package intake

import (
	"context"
	"encoding/json"
	"errors"
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
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// Handler управляет HTTP-запросами на регистрацию пробного доступа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики регистрации заявок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики регистрации заявки.
type Service interface {
	Register(ctx context.Context, req models.DummyTrialRequest, meta trialsvc.ClientMeta) (*models.Trial, error)
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
// @Summary Запросить пробный доступ
// @Description Регистрирует заявку с веб-формы и возвращает учётные данные пробного аккаунта.
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param request body models.DummyTrialRequest true "Данные заявки"
// @Success 200 {object} map[string]any "Учётные данные пробного аккаунта"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или повторная заявка"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Router /trials [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.intake"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyTrialRequest
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

	meta := trialsvc.ClientMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
	trial, err := h.service.Register(r.Context(), req, meta)
	if err != nil {
		if errors.Is(err, trialsvc.ErrDuplicateIdentity) {
			log.Info("duplicate trial request", slog.String("email", req.Email))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("trial already requested with this email or phone"))
			return
		}
		log.Error("failed to register trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not register trial"))
		return
	}

	log.Info("success to register trial", slog.Int("id", trial.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":             trial.ID,
		"trial_account":  trial.Account,
		"trial_end_date": trial.TrialEndDate,
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
