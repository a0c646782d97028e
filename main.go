// Command udaylive-bot is the Telegram remote control for the UdayLive
// streaming platform. It:
//   - Loads configuration and initializes structured logging.
//   - Wires the session store (memory, Redis, or Postgres) and the
//     Supabase-backed identity/platform clients.
//   - Receives updates either by long polling or via an HTTPS webhook.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joho/godotenv"
	"github.com/zayedali554/udaylive-bot/bot"
	"github.com/zayedali554/udaylive-bot/config"
	"github.com/zayedali554/udaylive-bot/db"
	"github.com/zayedali554/udaylive-bot/server"
	"github.com/zayedali554/udaylive-bot/session"
	"github.com/zayedali554/udaylive-bot/supabase"
	"github.com/zayedali554/udaylive-bot/telegram"
	"github.com/zayedali554/udaylive-bot/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("config incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("udaylive-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store backend. Postgres is the only backend that needs the
	// database; memory and Redis deployments never dial it.
	var (
		database *sql.DB
		sessions session.Store
		flows    session.FlowStore
	)
	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		d, err := db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := d.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, d); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		database = d
		sessions = session.NewPostgresStore(d, cfg.SessionTTL)
		flows = session.NewPostgresFlowStore(d)
	case config.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			slog.Error("redis unreachable", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
			os.Exit(1)
		}
		cancel()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		flows = session.NewRedisFlowStore(rdb)
	default:
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		flows = session.NewMemoryFlowStore()
	}
	slog.Info("session store ready", slog.String("backend", cfg.SessionBackend), slog.Duration("ttl", cfg.SessionTTL))

	session.StartSweeper(ctx, sessions, 10*time.Minute)

	// Collaborators
	tg := telegram.NewClient(cfg.BotAPIBase, cfg.BotToken)
	sb := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	dispatcher := bot.NewDispatcher(sessions, flows, sb, sb, tg)

	// Best-effort startup calls against the Bot API: identify ourselves and
	// register the command menu. Neither failure is fatal.
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if me, err := tg.GetMe(startupCtx); err != nil {
		slog.Warn("getMe failed", slog.Any("err", err))
	} else {
		slog.Info("bot identity confirmed", slog.String("username", me.Username))
	}
	if err := tg.SetMyCommands(startupCtx, bot.MenuCommands()); err != nil {
		slog.Warn("command menu registration failed", slog.Any("err", err))
	}
	cancel()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (webhook receiver + health/status/metrics)
	handlers := server.NewHandlers(database, sessions, dispatcher.HandleUpdate, cfg.WebhookSecret)
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Update delivery
	switch cfg.Mode {
	case config.ModeWebhook:
		regCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := tg.SetWebhook(regCtx, cfg.WebhookURL, cfg.WebhookSecret)
		cancel()
		if err != nil {
			slog.Error("webhook registration failed", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("webhook registered", slog.String("url", cfg.WebhookURL))
	default:
		// Long polling requires no registered webhook.
		delCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := tg.DeleteWebhook(delCtx); err != nil {
			slog.Warn("webhook removal failed", slog.Any("err", err))
		}
		cancel()
		var offsets telegram.OffsetStore
		if database != nil {
			offsets = &db.KVOffsetStore{DB: database}
		}
		poller := &telegram.Poller{Client: tg, Offsets: offsets, Handle: dispatcher.HandleUpdate}
		go poller.Run(ctx)
	}

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
