package leadintake

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/health"
	quotecreate "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/create"
	quotelist "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/list"
	quoteread "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/read"
	quoteremove "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/remove"
	quotestats "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/stats"
	quoteupdate "github.com/magabrotheeeer/lead-intake/internal/http/handlers/quote/update"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/access"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/convert"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/extend"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/followupadd"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/followuplist"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/intake"
	triallist "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/list"
	triallogin "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/login"
	trialread "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/read"
	trialremove "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/remove"
	trialstats "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/stats"
	trialupdate "github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/update"
	"github.com/magabrotheeeer/lead-intake/internal/http/handlers/trial/usage"
	"github.com/magabrotheeeer/lead-intake/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/lead-intake/internal/services/auth"
	quoteservice "github.com/magabrotheeeer/lead-intake/internal/services/quote"
	trialservice "github.com/magabrotheeeer/lead-intake/internal/services/trial"
	"github.com/magabrotheeeer/lead-intake/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	trialService *trialservice.TrialService,
	quoteService *quoteservice.QuoteService,
	authService *authservice.AuthService,
	db *repository.Storage,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Публичные формы и вход: лимит частоты против ботов
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/trials", intake.New(logger, trialService).ServeHTTP)
			r.Post("/quotes", quotecreate.New(logger, quoteService).ServeHTTP)
			r.Get("/trials/access/{username}", access.New(logger, trialService).ServeHTTP)
			r.Post("/trials/{id}/login", triallogin.New(logger, trialService).ServeHTTP)
			r.Post("/login", login.New(logger, authService).ServeHTTP)
		})

		// Административная группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Post("/register", register.New(logger, authService).ServeHTTP)

			r.Get("/trials", triallist.New(logger, trialService).ServeHTTP)
			r.Get("/trials/stats/overview", trialstats.New(logger, trialService).ServeHTTP)
			r.Get("/trials/{id}", trialread.New(logger, trialService).ServeHTTP)
			r.Put("/trials/{id}", trialupdate.New(logger, trialService).ServeHTTP)
			r.Delete("/trials/{id}", trialremove.New(logger, trialService).ServeHTTP)
			r.Post("/trials/{id}/extend", extend.New(logger, trialService).ServeHTTP)
			r.Post("/trials/{id}/convert", convert.New(logger, trialService).ServeHTTP)
			r.Post("/trials/{id}/followups", followupadd.New(logger, trialService).ServeHTTP)
			r.Get("/trials/{id}/followups", followuplist.New(logger, trialService).ServeHTTP)
			r.Get("/trials/{id}/usage", usage.New(logger, trialService).ServeHTTP)

			r.Get("/quotes", quotelist.New(logger, quoteService).ServeHTTP)
			r.Get("/quotes/stats/overview", quotestats.New(logger, quoteService).ServeHTTP)
			r.Get("/quotes/{id}", quoteread.New(logger, quoteService).ServeHTTP)
			r.Put("/quotes/{id}", quoteupdate.New(logger, quoteService).ServeHTTP)
			r.Delete("/quotes/{id}", quoteremove.New(logger, quoteService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
