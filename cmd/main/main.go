package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signal-engine/src/aggregator"
	"signal-engine/src/analysis"
	"signal-engine/src/config"
	"signal-engine/src/feed"
	"signal-engine/src/interfaces"
	"signal-engine/src/logger"
	"signal-engine/src/server"
	"signal-engine/src/session"
	signalengine "signal-engine/src/signal"
	"signal-engine/src/storage"
	"signal-engine/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	envPath := flag.String("env", "", "optional path to a .env file")
	flag.Parse()

	// Optional .env overlay for secrets (app id, db credentials)
	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Printf("Error loading env file: %v\n", err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyEnvOverrides(cfg)

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Storage
	var db interfaces.IDatabase
	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(cfg.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}

	sink := storage.NewSink(db, logger.NewLogger(cfg.LogLevel, "storage"))
	if err := sink.StartCleanupJob(cfg.Storage.CleanupSpec); err != nil {
		appLogger.Error("Cleanup job not scheduled: %v", err)
	}

	// 2. Feed
	var feedCli interfaces.IFeedClient = feed.NewFeedClient(cfg.Feed, logger.NewLogger(cfg.LogLevel, "feed"))

	// 3. Analysis stack
	agg := aggregator.NewCandleAggregator(cfg.Signal.WindowCapacity, logger.NewLogger(cfg.LogLevel, "aggregator"))
	indicators := analysis.NewIndicatorEngine(logger.NewLogger(cfg.LogLevel, "indicators"))
	psychology := analysis.NewPsychologyEngine(logger.NewLogger(cfg.LogLevel, "psychology"))
	prediction := analysis.NewPredictionEngine(cfg.Volatility, indicators, psychology, logger.NewLogger(cfg.LogLevel, "prediction"))
	signals := signalengine.NewSignalEngine(cfg.Signal, cfg.Volatility, prediction, logger.NewLogger(cfg.LogLevel, "signals"))

	// 4. Market gate and session manager
	gate := utils.NewMarketGate(logger.NewLogger(cfg.LogLevel, "calendar"))
	manager := session.NewManager(cfg.Signal, feedCli, agg, signals, gate, logger.NewLogger(cfg.LogLevel, "sessions"))

	// 5. Push server and event wiring
	srv := server.NewPushServer(cfg.MConfig, manager, logger.NewLogger(cfg.LogLevel, "server"))

	manager.OnPreCloseSignal(srv.BroadcastSignal)
	manager.OnPreCloseSignal(sink.HandleSignal)
	manager.OnSessionStarted(srv.UpdateSession)
	manager.OnSessionStarted(sink.HandleSessionChange)
	manager.OnSessionStopped(srv.UpdateSession)
	manager.OnSessionStopped(sink.HandleSessionChange)
	manager.OnFeedDisconnected(func() { srv.BroadcastFeedStatus(false) })
	feedCli.OnConnected(func() { srv.BroadcastFeedStatus(true) })

	// 6. Connect the feed; the client reconnects on its own afterwards
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Feed.RequestTimeout)*time.Second)
	if err := feedCli.Connect(ctx); err != nil {
		appLogger.Warning("Initial feed connect failed, sessions will fail until it recovers: %v", err)
	}
	cancel()

	// 7. Serve
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	appLogger.Info("%s up on %s:%d", cfg.Name, cfg.Host, cfg.Port)

	// 8. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	for _, s := range manager.ListSessions() {
		if _, err := manager.StopSession(s.ID); err != nil {
			appLogger.Warning("Failed to stop session %s: %v", s.ID, err)
		}
	}
	if err := feedCli.Close(); err != nil {
		appLogger.Warning("Feed close: %v", err)
	}
	sink.Stop()
	if err := db.Close(); err != nil {
		appLogger.Warning("DB close: %v", err)
	}
	if err := srv.Stop(); err != nil {
		appLogger.Warning("Server stop: %v", err)
	}
}

// -----------------------------------------------------------------------------

// applyEnvOverrides lets deployment secrets trump the YAML file.
func applyEnvOverrides(cfg *config.Config) {
	if appID := os.Getenv("FEED_APP_ID"); appID != "" {
		cfg.Feed.AppID = appID
	}
	if dsn := os.Getenv("DB_CONNECTION_STRING"); dsn != "" {
		cfg.Storage.DBConnectionString = dsn
	}
	if endpoint := os.Getenv("FEED_ENDPOINT"); endpoint != "" {
		cfg.Feed.Endpoint = endpoint
	}
}
