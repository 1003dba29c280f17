package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tradewatch/src/candles"
	"tradewatch/src/config"
	"tradewatch/src/engine"
	"tradewatch/src/feed"
	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"
	"tradewatch/src/poller"
	"tradewatch/src/registry"
	"tradewatch/src/server"
	"tradewatch/src/service"
	"tradewatch/src/storage"
	"tradewatch/src/trading"
	"tradewatch/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Candle store
	var candleStore interfaces.ICandleStore

	switch cfg.Storage.CandleStore {
	case "redis":
		err = helpers.RetryWithBackoff(appLogger, "redis connect", 5, time.Second, func() error {
			candleStore, err = storage.NewRedisCandleStore(cfg.MConfig, appLogger.Named("redis"))
			return err
		})
		if err != nil {
			appLogger.Critical("Failed to init redis candle store: %v", err)
		}
	default:
		// Default to SQLite
		sqliteStore, serr := storage.NewSQLiteCandleStore(cfg.MConfig, appLogger.Named("sqlite"))
		if serr != nil {
			appLogger.Critical("Failed to init sqlite candle store: %v", serr)
		}
		if serr := sqliteStore.Initialize(); serr != nil {
			appLogger.Critical("Failed to migrate sqlite candle store: %v", serr)
		}
		candleStore = sqliteStore
	}
	defer candleStore.Close()

	// 2. Entity repositories: Postgres when a DSN is configured, in-memory
	// otherwise (dev / paper runs).
	var alertRepo interfaces.IAlertRepo
	var ruleRepo interfaces.ITradeRuleRepo
	var txRepo interfaces.ITransactionRepo

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		var pg *storage.PostgresDB
		perr := helpers.RetryWithBackoff(appLogger, "postgres connect", 5, time.Second, func() error {
			var cerr error
			pg, cerr = storage.NewPostgresDB(dsn, appLogger.Named("postgres"))
			return cerr
		})
		if perr != nil {
			appLogger.Critical("Failed to connect to postgres: %v", perr)
		}
		if perr := pg.Initialize(); perr != nil {
			appLogger.Critical("Failed to migrate postgres: %v", perr)
		}
		defer pg.Close()

		alertRepo = storage.NewPostgresAlertRepo(pg)
		ruleRepo = storage.NewPostgresTradeRuleRepo(pg)
		txRepo = storage.NewPostgresTransactionRepo(pg)
	} else {
		appLogger.Warning("No postgres DSN configured, using in-memory repositories")
		alertRepo = storage.NewMemoryAlertRepo()
		ruleRepo = storage.NewMemoryTradeRuleRepo()
		txRepo = storage.NewMemoryTransactionRepo()
	}

	// 3. Trading collaborator
	var trader interfaces.ITradingService
	if cfg.Trading.Simulate || cfg.Trading.Endpoint == "" {
		appLogger.Info("Trading in simulation mode, all orders fill instantly")
		trader = trading.NewSimulator()
	} else {
		trader = trading.NewHTTPClient(cfg.Trading.Endpoint)
	}

	// 4. Registries, cleanup, transport
	stockSubs := registry.NewRegistry[*models.MStockSubscription]()
	alertSubs := registry.NewRegistry[*models.MAlertSubscription]()
	tradeSubs := registry.NewRegistry[*models.MTradeSubscription]()
	cleanup := registry.NewCleanupRegistry(appLogger.Named("cleanup"))

	hub := server.NewHub(appLogger.Named("hub"), cleanup)
	dispatcher := notifier.NewDispatcher(hub)

	// 5. Core services and engines
	candleService := candles.NewService(candleStore, appLogger.Named("candles"))
	alertEngine := engine.NewAlertEngine(alertRepo, candleStore, dispatcher, appLogger.Named("alerts"))
	tradeEngine := engine.NewTradeEngine(ruleRepo, txRepo, candleStore, trader, dispatcher, appLogger.Named("trades"))

	subscriptions := &service.SubscriptionService{
		Logger:     appLogger.Named("subscriptions"),
		Candles:    candleService,
		Dispatcher: dispatcher,
		Cleanup:    cleanup,
		Alerts:     alertRepo,
		Rules:      ruleRepo,
		StockSubs:  stockSubs,
		AlertSubs:  alertSubs,
		TradeSubs:  tradeSubs,
	}

	// 6. Poll loops
	loops := &poller.Poller{
		Logger:        appLogger.Named("poller"),
		Candles:       candleService,
		Alerts:        alertEngine,
		Trades:        tradeEngine,
		Dispatcher:    dispatcher,
		Markets:       utils.NewMarketScheduler(),
		StockSubs:     stockSubs,
		AlertSubs:     alertSubs,
		TradeSubs:     tradeSubs,
		StockInterval: time.Duration(cfg.Polling.StockIntervalSeconds) * time.Second,
		AlertInterval: time.Duration(cfg.Polling.AlertIntervalSeconds) * time.Second,
		TradeInterval: time.Duration(cfg.Polling.TradeIntervalSeconds) * time.Second,
		CallTimeout:   time.Duration(cfg.Polling.CallTimeoutSeconds) * time.Second,
	}

	// 7. Background lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapWg := &sync.WaitGroup{}
	loops.Start(ctx, wrapWg)

	if cfg.Feed.Enabled {
		feed.NewGenerator(cfg.Feed, candleStore, appLogger.Named("feed")).Start(ctx, wrapWg)
	}

	// 8. HTTP + WebSocket server
	srv := server.NewServer(cfg.MConfig, appLogger.Named("server"), hub, subscriptions, alertRepo, ruleRepo, txRepo)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	appLogger.Info("tradewatch is running")

	// 9. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()      // Signal loops and feed to stop
	wrapWg.Wait() // Wait for them to drain
}
