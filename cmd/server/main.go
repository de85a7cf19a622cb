package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"messbook/internal/auth"
	"messbook/internal/balance"
	"messbook/internal/handlers"
	"messbook/internal/ledger"
	"messbook/internal/meals"
	"messbook/internal/mess"
	"messbook/internal/middleware"
	"messbook/internal/notify"
	"messbook/internal/report"
	"messbook/internal/storage/sqlite"
	"messbook/pkg/logging"
)

type config struct {
	Addr          string        `env:"SERVER_ADDR" envDefault:":8080"`
	DBPath        string        `env:"DB_PATH" envDefault:"./data/messbook.db"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	TokenDuration time.Duration `env:"TOKEN_DURATION" envDefault:"720h"`
	PushEndpoint  string        `env:"PUSH_ENDPOINT"`
	PushAPIKey    string        `env:"PUSH_API_KEY"`
}

func main() {
	logging.Setup()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("Failed to parse configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var pusher notify.Pusher
	if cfg.PushEndpoint != "" {
		pusher = notify.NewHTTPPusher(cfg.PushEndpoint, cfg.PushAPIKey)
		slog.Info("Push delivery enabled", "endpoint", cfg.PushEndpoint)
	} else {
		slog.Warn("PUSH_ENDPOINT not set; notifications persist to feeds only")
	}

	fanout := notify.New(store, pusher)
	balances := balance.New(store)
	handler := handlers.New(
		store,
		mess.New(store),
		meals.New(store),
		ledger.New(store, balances, fanout),
		balances,
		report.New(store, balances),
	)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)

	mux := http.NewServeMux()
	handler.Register(mux)

	root := http.NewServeMux()
	root.Handle("/v1/", middleware.RequireAuth(jwtManager)(mux))
	root.Handle("/metrics", promhttp.Handler())
	root.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, middleware.Logging(root)); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
