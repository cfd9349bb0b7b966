// Package duelbuilder wires the duel engine, record stores and chat presentation.
package duelbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/adapter/duelpresenter"
	"github.com/park285/chess-duel-bot/internal/chessrules"
	"github.com/park285/chess-duel-bot/internal/command"
	"github.com/park285/chess-duel-bot/internal/config"
	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/irisfast"
	"github.com/park285/chess-duel-bot/internal/msgcat"
	"github.com/park285/chess-duel-bot/internal/recordstore"
	"github.com/park285/chess-duel-bot/internal/render"
)

const sendTimeout = 15 * time.Second

type Deps struct {
	Store      recordstore.Store
	Registry   *duel.Registry
	Dispatcher *duel.Dispatcher
	Watchdog   *duel.Watchdog
	Router     *command.Router
}

// Close releases the record store.
func (d *Deps) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

func New(cfg *config.AppConfig, egress irisfast.Egress, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if egress == nil {
		return nil, errors.New("nil egress")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	formatter := duelpresenter.NewFormatter(duelpresenter.StaticPrefix(cfg.BotPrefix), msgcat.MustDefault())
	presenter := duelpresenter.NewPresenter(
		func(room, message string) error {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			return egress.SendText(ctx, room, message)
		},
		func(room, imageBase64 string) error {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			return egress.SendImage(ctx, room, imageBase64)
		},
		render.New(),
		logger,
	)

	reg := duel.NewRegistry(chessrules.New(),
		duel.WithLogger(logger),
		duel.WithRecorder(store),
		duel.WithNotifier(duelpresenter.NewNotifier(presenter, formatter, logger)),
		duel.WithInitialClock(cfg.Duel.InitialClock),
		duel.WithOfferTTL(cfg.Duel.OfferTTL),
		duel.WithIneligible(cfg.Duel.Ineligible...),
	)
	disp := duel.NewDispatcher(reg)
	dog := duel.NewWatchdog(reg,
		duel.WithInterval(cfg.Duel.WatchdogInterval),
		duel.WithInactivityThreshold(cfg.Duel.InactivityTimeout),
		duel.WithFlagFallSweep(cfg.Duel.SweepFlagFall),
	)
	router := command.NewRouter(cfg.BotPrefix, reg, disp, store, presenter, formatter,
		command.WithAllowedRooms(cfg.AllowedRooms),
		command.WithLogger(logger),
	)

	return &Deps{Store: store, Registry: reg, Dispatcher: disp, Watchdog: dog, Router: router}, nil
}

// OpenStore picks the primary record store (Postgres, then SQLite, then
// Redis, then memory) and mirrors into Redis when it is not already primary.
func OpenStore(cfg *config.AppConfig, logger *zap.Logger) (recordstore.Store, error) {
	var (
		primary recordstore.Store
		mirrors []recordstore.Store
		err     error
	)
	redisURL := strings.TrimSpace(cfg.RedisURL)

	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		primary, err = recordstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		logger.Info("duel_store_primary", zap.String("kind", "postgres"))
	case strings.TrimSpace(cfg.SQLitePath) != "":
		primary, err = recordstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		logger.Info("duel_store_primary", zap.String("kind", "sqlite"), zap.String("path", cfg.SQLitePath))
	case redisURL != "":
		primary, err = recordstore.NewRedis(redisURL, cfg.Duel.RecordTTL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		logger.Info("duel_store_primary", zap.String("kind", "redis"))
		return primary, nil
	default:
		logger.Warn("duel_store_memory", zap.String("hint", "records are lost on restart"))
		return recordstore.NewMemory(), nil
	}

	if redisURL != "" {
		mirror, rerr := recordstore.NewRedis(redisURL, cfg.Duel.RecordTTL)
		if rerr != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("init redis mirror: %w", rerr)
		}
		mirrors = append(mirrors, mirror)
	}
	if len(mirrors) == 0 {
		return primary, nil
	}
	return recordstore.NewFanout(logger, primary, mirrors...), nil
}
