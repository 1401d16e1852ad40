package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"pasal/docs" //this is required to generate swagger docs
	"pasal/internal/auth"
	"pasal/internal/domain/accesscontrol"
	"pasal/internal/payments"
	"pasal/internal/ratelimiter"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	payments      *payments.Service
	configs       *payments.ConfigService
	reconciler    *payments.Reconciler
	access        accesscontrol.Store
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	// checks are run by the health endpoint, keyed by dependency name.
	checks map[string]func(context.Context) error
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.Addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/payments", func(r chi.Router) {
			// Provider and browser entry points: unauthenticated, rate limited.
			r.Group(func(r chi.Router) {
				r.Use(app.RateLimiterMiddleware)
				r.Get("/esewa/success", app.esewaReturnHandler)
				r.Post("/esewa/success", app.esewaReturnHandler)
				r.Get("/esewa/failure", app.esewaReturnHandler)
				r.Post("/esewa/failure", app.esewaReturnHandler)
				r.Get("/{shopID}/{method}/callback", app.paymentCallbackHandler)
				r.Post("/{shopID}/{method}/callback", app.paymentCallbackHandler)
			})

			r.With(app.AuthTokenMiddleware).Post("/{shopID}/{method}/init", app.startPaymentHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Route("/shops/{shopID}/gateway-configs", func(r chi.Router) {
				r.Post("/", app.createGatewayConfigHandler)
				r.Get("/", app.listGatewayConfigsHandler)
			})

			r.Route("/gateway-configs/{configID}", func(r chi.Router) {
				r.Patch("/", app.updateGatewayConfigHandler)
				r.Patch("/toggle-active", app.toggleGatewayConfigHandler)
				r.Delete("/", app.deleteGatewayConfigHandler)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(app.RequireAdmin)
				r.Get("/gateway-configs/{configID}/credentials", app.adminGatewayCredentialsHandler)
				r.Get("/payments", app.adminListPaymentsHandler)
				r.Post("/payments/{paymentID}/cancel", app.adminCancelPaymentHandler)
				r.Post("/payments/{paymentID}/confirm", app.adminConfirmPaymentHandler)
			})
		})
	})
	return r
}

// healthCheckHandler godoc
//
//	@Summary	Health check
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(app.checks))
	for name, check := range app.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	data := map[string]any{
		"status":       "ok",
		"env":          app.config.Env,
		"version":      version,
		"dependencies": deps,
	}
	if status != http.StatusOK {
		data["status"] = "degraded"
	}

	if err := app.jsonResponse(w, status, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(app.config.APIURL, "https://"), "http://")
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	app.startBackgroundJobs(ctx)

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())
		stopBackground()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.Addr, "env", app.config.Env)

	return nil
}
