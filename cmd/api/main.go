package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
	"voice-dashboard/internal/campaigns"
	"voice-dashboard/internal/chat"
	"voice-dashboard/internal/chatclient"
	"voice-dashboard/internal/config"
	"voice-dashboard/internal/contacts"
	"voice-dashboard/internal/export"
	"voice-dashboard/internal/httpapi"
	"voice-dashboard/internal/notify"
	"voice-dashboard/internal/orgs"
	"voice-dashboard/internal/realtime"
	"voice-dashboard/internal/reporting"
	"voice-dashboard/internal/signup"
	"voice-dashboard/internal/voice"
	"voice-dashboard/pkg/logger"
	"voice-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return err
	}
	var rooms *auth.RoomMinter
	if cfg.Media.APIKey != "" {
		if rooms, err = auth.NewRoomMinter(cfg.Media); err != nil {
			return err
		}
	}

	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		return err
	}
	defer rdb.Close()

	transport, closeTransport, err := openTransport(cfg.Realtime, rdb, log)
	if err != nil {
		return err
	}
	defer closeTransport()

	registry := realtime.NewRegistry(transport, log, realtime.RegistryOptions{Buffer: cfg.Realtime.SubscriberBuffer})
	defer registry.Close()
	bridge := realtime.NewPGBridge(db, cfg.Realtime.NotifyChannel, transport, log)

	// Services
	activity := audit.NewService(audit.NewPGRepo(db))
	notifications := notify.NewService(notify.NewPGRepo(db), log)
	orgSvc := orgs.NewService(orgs.NewPGRepo(db))
	campaignSvc := campaigns.NewService(campaigns.NewPGRepo(db), activity)
	callSvc := calls.NewService(calls.NewPGRepo(db))
	queueSvc := callqueue.NewService(
		callqueue.NewPGRepo(db),
		utils.NewConcurrencyCap(rdb, "callqueue:slots", 0),
		campaignConcurrency(campaignSvc),
		log,
	)

	h := httpapi.Handlers{
		Auth:          authManager,
		Rooms:         rooms,
		Orgs:          orgSvc,
		Campaigns:     campaignSvc,
		Agents:        agents.NewService(agents.NewPGRepo(db), activity),
		Contacts:      contacts.NewService(contacts.NewPGRepo(db)),
		Queue:         queueSvc,
		Calls:         callSvc,
		Reporting:     reporting.NewService(reporting.NewPGRepo(db)),
		Export:        export.NewExporter(callSvc, activity),
		Chat:          chat.NewService(chat.NewPGRepo(db), activity),
		Activity:      activity,
		Notifications: notifications,
		Signup:        signup.NewProvisioner(orgSvc, activity, notifications, log),
		SignupSecret:  cfg.Signup.WebhookSecret,
		Realtime:      registry,
		Notifier:      notify.LogNotifier{Log: log},
	}
	if cfg.AppServer.BaseURL != "" {
		h.ChatServer = chatclient.New(chatclient.Config{BaseURL: cfg.AppServer.BaseURL, APIKey: cfg.AppServer.APIKey}, log)
	}
	if cfg.Voice.BaseURL != "" {
		h.Voice = voice.NewService(voice.NewHTTPProvider(cfg.Voice.BaseURL, cfg.Voice.APIKey, cfg.AppServer.Timeout), log)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz", "/metrics"))
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	// SSE handlers hold connections open, so WriteTimeout stays unset.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return bridge.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
			return err
		}
		return nil
	})
	return g.Wait()
}

func openTransport(cfg config.RealtimeConfig, rdb *redis.Client, log *slog.Logger) (realtime.Transport, func(), error) {
	switch cfg.Transport {
	case "nats":
		nc, err := realtime.ConnectNATS(cfg.NATSURL, "voice-dashboard-api", log)
		if err != nil {
			return nil, nil, err
		}
		return realtime.NewNATSTransport(nc), nc.Close, nil
	default:
		return realtime.NewRedisTransport(rdb), func() {}, nil
	}
}

// campaignConcurrency reads the processing limit from the campaign.
func campaignConcurrency(svc *campaigns.Service) callqueue.LimitFunc {
	return func(ctx context.Context, organizationID, campaignID string) (int, error) {
		c, err := svc.Get(ctx, organizationID, campaignID)
		if err != nil {
			return 0, err
		}
		return c.Concurrency, nil
	}
}
