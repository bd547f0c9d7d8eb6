package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bidvault/config"
	"bidvault/core/events"
	"bidvault/core/state"
	"bidvault/native/escrow"
	"bidvault/native/ledger"
	"bidvault/observability/logging"
	"bidvault/rpc"
	"bidvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BIDVAULT_ENV"))
	logger := logging.Setup("bidvaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dataDir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	led := ledger.New(manager)

	eventStream := events.NewStream()

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(led)
	engine.SetBidderPolicy(cfg.Policy())
	engine.SetEmitter(eventStream)

	server := rpc.NewServer(engine, led, logger)
	server.SetFaucetEnabled(cfg.FaucetEnabled)
	server.SetEvents(eventStream)

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Method(http.MethodPost, "/", server.Handler())
	router.Get("/ws/events", server.EventStreamHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting JSON-RPC server",
			slog.String("addr", cfg.RPCAddress),
			slog.String("network", cfg.NetworkName),
			slog.Bool("faucet", cfg.FaucetEnabled))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
}
