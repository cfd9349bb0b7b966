package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/park285/chess-duel-bot/internal/config"
	"github.com/park285/chess-duel-bot/internal/duelbuilder"
	"github.com/park285/chess-duel-bot/internal/irisfast"
	"github.com/park285/chess-duel-bot/internal/obslog"
	"github.com/park285/chess-duel-bot/internal/telemetry"
)

const serviceName = "chess-duel-bot"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		logger.Fatal("telemetry_init_error", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry_shutdown_error", zap.Error(err))
		}
	}()

	headers := headerProvider(cfg)
	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithLogger(logger),
	)
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetLogger(logger)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})

	egress := irisfast.NewEgress(cfg.EgressMode, cfg.EgressDryRun, client, ws, logger)
	deps, err := duelbuilder.New(cfg, egress, logger)
	if err != nil {
		logger.Fatal("duel_init_error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("duel_store_close_error", zap.Error(err))
		}
	}()

	ws.OnMessage(func(msg *irisfast.Message) {
		deps.Router.Enqueue(ctx, msg)
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = ws.Connect(cctx)
	cancel()
	if err != nil {
		logger.Fatal("ws_connect_error", zap.Error(err))
	}
	logger.Info("duel_bot_ready",
		zap.String("prefix", cfg.BotPrefix),
		zap.Strings("allowed_rooms", cfg.AllowedRooms),
		zap.String("egress", cfg.EgressMode),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Watchdog.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ws.Close(cctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("duel_bot_exit", zap.Error(err))
	}
	dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := deps.Router.Close(dctx); err != nil {
		logger.Warn("duel_router_drain_error", zap.Error(err))
	}
	dcancel()
	logger.Info("duel_bot_stopped")
}

func headerProvider(cfg *appcfg.AppConfig) irisfast.HeaderProvider {
	return func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}
}
