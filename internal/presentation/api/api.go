package api

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/studyroom/internal/infrastructure/configs"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/infrastructure/ratelimiter"
	connectionHandler "github.com/hilthontt/studyroom/internal/presentation/handler/connection"
	filesHandler "github.com/hilthontt/studyroom/internal/presentation/handler/files"
	healthHandler "github.com/hilthontt/studyroom/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/studyroom/internal/presentation/handler/messages"
	roomHandler "github.com/hilthontt/studyroom/internal/presentation/handler/rooms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "roomlink-api"

type Handlers struct {
	Rooms      roomHandler.Handler
	Connection connectionHandler.Handler
	Messages   messagesHandler.Handler
	Files      filesHandler.Handler
	Health     healthHandler.Handler
	Metrics    http.Handler
}

type Application struct {
	config      configs.Config
	handlers    Handlers
	logger      *zap.SugaredLogger
	accessLog   logging.Logger
	ratelimiter ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	handlers Handlers,
	logger *zap.SugaredLogger,
	accessLog logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:      config,
		handlers:    handlers,
		logger:      logger,
		accessLog:   accessLog,
		ratelimiter: ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(app.enableCors)

	// Room selection blocks for up to the dial timeout and uploads for the
	// upload timeout, so the request timeout has to cover both.
	r.Use(middleware.Timeout(app.requestTimeout()))

	if app.ratelimiter != nil {
		r.Use(app.rateLimiterMiddleware)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", app.handlers.Rooms.ListRoomsHandler)
			r.Post("/{roomId}/select", app.handlers.Rooms.SelectRoomHandler)
			r.Get("/{roomId}/messages", app.handlers.Rooms.GetMessagesHandler)
		})

		r.Route("/connection", func(r chi.Router) {
			r.Get("/", app.handlers.Connection.GetConnectionHandler)
			r.Post("/close", app.handlers.Connection.CloseConnectionHandler)
		})

		r.Post("/messages", app.handlers.Messages.SendMessageHandler)
		r.Post("/files", app.handlers.Files.ShareFileHandler)

		r.Get("/health", app.handlers.Health.GetHealth)
		r.Get("/healthz", app.handlers.Health.GetHealth)
	})

	if app.handlers.Metrics != nil {
		r.Handle("/metrics", app.handlers.Metrics)
	}
	r.Handle("/debug/vars", expvar.Handler())

	return otelhttp.NewHandler(r, serviceName)
}

func (app *Application) requestTimeout() time.Duration {
	timeout := 60 * time.Second
	if t := app.config.WS.ConnectTimeout + 5*time.Second; t > timeout {
		timeout = t
	}
	if t := app.config.Upload.Timeout + 5*time.Second; t > timeout {
		timeout = t
	}
	return timeout
}

func (app *Application) Run(mux http.Handler) error {
	writeTimeout := app.config.HTTP.WriteTimeout
	if floor := app.requestTimeout() + 5*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: writeTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
