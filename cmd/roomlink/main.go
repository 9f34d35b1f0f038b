package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"runtime"

	"github.com/hilthontt/studyroom/internal/application/attachments"
	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/configs"
	"github.com/hilthontt/studyroom/internal/infrastructure/frame"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/infrastructure/metrics"
	"github.com/hilthontt/studyroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/studyroom/internal/infrastructure/repository"
	"github.com/hilthontt/studyroom/internal/infrastructure/tracing"
	"github.com/hilthontt/studyroom/internal/infrastructure/transfer"
	"github.com/hilthontt/studyroom/internal/infrastructure/ws"
	"github.com/hilthontt/studyroom/internal/presentation/api"
	"github.com/hilthontt/studyroom/internal/presentation/handler/connection"
	"github.com/hilthontt/studyroom/internal/presentation/handler/files"
	"github.com/hilthontt/studyroom/internal/presentation/handler/health"
	"github.com/hilthontt/studyroom/internal/presentation/handler/messages"
	"github.com/hilthontt/studyroom/internal/presentation/handler/rooms"
	"go.uber.org/zap"
)

const (
	serviceName = "roomlink"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	sh, err := tracing.InitTracer(serviceName, cfg.Tracing)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	appLogger, err := logging.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatal(err)
	}
	defer appLogger.Sync()

	mode, err := frame.ParseNotificationMode(cfg.Classifier.NotificationMode)
	if err != nil {
		log.Fatal(err)
	}
	classifier := frame.NewClassifier(frame.Options{
		Notifications:     mode,
		RelayedFileFrames: cfg.Classifier.RelayedFileFrames,
	})

	m := metrics.New()
	messageLog := repository.NewMessageLog(cfg.MessageLog.Capacity)

	manager := ws.NewManager(ws.NewConfig(cfg.Upstream, cfg.WS), classifier, messageLog, appLogger, m)
	defer manager.Close()

	manager.SetStateHandler(func(change domain.StateChange) {
		fields := []any{
			"from", change.From.String(),
			"to", change.To.String(),
			"room", change.Session.RoomID,
			"generation", change.Session.Generation,
		}
		if change.Reason != "" {
			fields = append(fields, "reason", string(change.Reason))
		}
		if change.Err != nil {
			fields = append(fields, "error", change.Err.Error())
		}
		logger.Infow("connection state changed", fields...)
	})

	transferClient := transfer.NewClient(transfer.NewConfig(cfg.Upstream, cfg.Upload), &http.Client{})
	correlator := attachments.NewCorrelator(transferClient, manager, appLogger, m)

	var rl ratelimiter.Limiter
	if cfg.RateLimiter.Enabled {
		fw := ratelimiter.NewFixedWindow(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
		defer fw.Close()
		rl = fw
	}

	app := api.NewApplication(*cfg, api.Handlers{
		Rooms:      *rooms.NewHandler(manager, messageLog, transferClient, appLogger),
		Connection: *connection.NewHandler(manager),
		Messages:   *messages.NewHandler(manager, appLogger),
		Files:      *files.NewHandler(correlator, transferClient, cfg.Upload.MaxBytes, appLogger),
		Health:     *health.NewHandler(manager),
		Metrics:    m.Handler(),
	}, logger, appLogger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("connection", expvar.Func(func() any {
		session := manager.Session()
		return map[string]any{
			"state":      manager.State().String(),
			"room":       session.RoomID,
			"generation": session.Generation,
		}
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(err)
	}
}
