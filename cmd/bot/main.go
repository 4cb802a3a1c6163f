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

	"github.com/Spok95/crod-stock-bot/internal/bot"
	"github.com/Spok95/crod-stock-bot/internal/config"
	"github.com/Spok95/crod-stock-bot/internal/dialog"
	"github.com/Spok95/crod-stock-bot/internal/domain/extracts"
	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/Spok95/crod-stock-bot/internal/domain/users"
	"github.com/Spok95/crod-stock-bot/internal/infra/cache"
	"github.com/Spok95/crod-stock-bot/internal/infra/db"
	"github.com/Spok95/crod-stock-bot/internal/infra/extract"
	httpx "github.com/Spok95/crod-stock-bot/internal/infra/http"
	"github.com/Spok95/crod-stock-bot/internal/infra/logger"
	"github.com/Spok95/crod-stock-bot/internal/infra/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func newTableStore(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.TableStore, func()) {
	if cfg.Redis.Addr == "" {
		log.Info("table store: memory")
		return cache.NewMemoryStore(0), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, falling back to memory", "addr", cfg.Redis.Addr, "err", err)
		_ = client.Close()
		return cache.NewMemoryStore(0), func() {}
	}
	log.Info("table store: redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return cache.NewRedisStore(client, cfg.Redis.TTL), func() { _ = client.Close() }
}

func main() {
	cfgPath := "config/example.yaml"
	if p := os.Getenv("APP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, reg)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	store, closeStore := newTableStore(ctx, cfg, log)
	defer closeStore()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	log.Info("telegram authorized", "bot", api.Self.UserName)

	clock := cfg.Clock()
	log.Info("reference date", "date", stock.Day(clock()).Format("2006-01-02"),
		"pinned", cfg.Stock.ReferenceDate != "", "timezone", cfg.Location().String())

	b := bot.New(api, log,
		users.NewRepo(pool), dialog.NewRepo(pool), extracts.NewRepo(pool),
		store, stock.NewMemo(cfg.Memo.MaxEntries, m),
		extract.NewLoader(log, m, cfg.Stock.SheetName),
		bot.Options{
			AdminChatID:    cfg.Telegram.AdminChatID,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			PreviewRows:    cfg.Stock.PreviewRows,
			Clock:          clock,
			PinnedClock:    cfg.Stock.ReferenceDate != "",
		})

	if err := b.Run(ctx, cfg.Telegram.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
