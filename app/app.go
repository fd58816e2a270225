package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/kmwangi/ethpesa/bot"
	"github.com/kmwangi/ethpesa/core/bootstrap"
	coretelegram "github.com/kmwangi/ethpesa/core/telegram"
	"github.com/kmwangi/ethpesa/core/telegram/commands"
	"github.com/kmwangi/ethpesa/core/telegram/router"
	"github.com/kmwangi/ethpesa/core/telegram/state"
	"github.com/kmwangi/ethpesa/deposit"
	"github.com/kmwangi/ethpesa/payments/lipia"
	"github.com/kmwangi/ethpesa/rates/coingecko"
	"github.com/kmwangi/ethpesa/wallet"
)

// App holds the wired application.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	sessions state.Manager
	engine   *bot.Engine
}

// Bootstrap initializes logging, the database, migrations, and the engine.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessions(cfg)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	accounts := wallet.NewPostgresStore(res.DB)
	payments := lipia.New(cfg.Payment.URL, cfg.Payment.Key, nil)
	rates := coingecko.New(cfg.Rates.URL, nil)
	settlements := deposit.NewService(payments, rates, accounts, cfg.Rates.Asset, cfg.Rates.Fiat)

	return &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: sessions,
		engine:   bot.NewEngine(sessions, settlements, accounts),
	}, nil
}

func buildSessions(cfg *Config) (state.Manager, error) {
	if cfg.Session.Backend != SessionBackendRedis {
		return state.NewMemoryManager(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Session.Redis.Addr,
		Password: cfg.Session.Redis.Password,
		DB:       cfg.Session.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session redis ping: %w", err)
	}

	ttl := time.Duration(cfg.Session.TTLMin) * time.Minute
	return state.NewRedisManager(rdb, ttl), nil
}

// TelegramRunOptions assembles routes and middleware for the shared runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.engine.StartHandler(),
		Description: "Show the wallet menu",
	})
	if err := reg.RegisterCallback(bot.CallbackAccountRefresh, a.engine.AccountRefreshHandler()); err != nil {
		return coretelegram.RunOptions{}, err
	}

	fallbacks := bot.Fallbacks{Engine: a.engine}
	reg.SetCallbackNotFound(fallbacks.UnknownCallback())

	// The deposit dialog routes through the FSM manager; everything else
	// lands in the menu dispatch via the unknown-text fallback.
	state.RegisterHandler(bot.StateDepositPhone, a.engine.TeleHandler())
	state.RegisterHandler(bot.StateDepositAmount, a.engine.TeleHandler())

	routes := router.TextRoutes(a.sessions, reg, router.TextOptions{
		UnknownText:     fallbacks.UnknownText(),
		UnknownDocument: fallbacks.UnknownDocument(),
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fallbacks.UnknownCallback(),
	}))
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
	}, nil
}

// Close releases infrastructure owned by the app.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
