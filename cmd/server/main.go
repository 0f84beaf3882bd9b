package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"

	"flightsurety-service/internal/domain/repository"
	"flightsurety-service/internal/infrastructure/chainclock"
	"flightsurety-service/internal/infrastructure/config"
	"flightsurety-service/internal/infrastructure/gate"
	"flightsurety-service/internal/infrastructure/persistence"
	"flightsurety-service/internal/infrastructure/router"
	"flightsurety-service/internal/infrastructure/treasury"
	"flightsurety-service/internal/interface/publisher"
	journalRepo "flightsurety-service/internal/interface/repository"
	"flightsurety-service/internal/interface/rest"
	"flightsurety-service/internal/usecase"
	"flightsurety-service/pkg/logger"
	"flightsurety-service/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(logger.Options{}).Fatal("Failed to load config", "error", err)
	}

	// Create logger
	zapLog := logger.NewLogger(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer zapLog.Sync()
	var log logger.Logger = zapLog
	log.Info("Starting FlightSurety Service", "version", cfg.AppVersion, "storage", cfg.StorageBackend)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("flightsurety", registry)

	// Set up journal storage
	var mongoClient *mongo.Client
	var store repository.JournalRepository
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		log.Info("Connecting to PostgreSQL")
		db, err := persistence.NewPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		if err := journalRepo.AutoMigrateJournal(db); err != nil {
			log.Fatal("Failed to migrate journal tables", "error", err)
		}
		store = journalRepo.NewGormJournalRepository(db)
	case config.StorageMongo:
		log.Info("Connecting to MongoDB")
		mongoClient, err = persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		store = journalRepo.NewMongoJournalRepository(mongoClient.Database(cfg.MongoDB))
	default:
		log.Warn("Journal is kept in memory and is lost on restart")
		store = journalRepo.NewMemoryJournalRepository()
	}

	// Set up notification publishers
	publishers := publisher.Fanout{publisher.NewLogPublisher(log)}
	if cfg.RedisAddr != "" {
		log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		rdb, err := persistence.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
		publishers = append(publishers, publisher.NewRedisPublisher(rdb, cfg.RedisChannelPrefix))
	}

	callerGate := gate.New(cfg.Admins, cfg.CallerAllowlist)
	bank := treasury.New(log)
	clock := chainclock.New(cfg.ChainGenesis, cfg.BlockInterval, cfg.ChainSeed)

	ledger, err := usecase.NewLedger(ctx, usecase.LedgerConfig{
		Escrow:         cfg.EscrowAccount,
		GenesisAirline: cfg.GenesisAirline,
		GenesisName:    cfg.GenesisAirlineName,
		Rule:           cfg.ConsensusRule,
		RequestTTL:     cfg.RequestTTLBlocks,
	}, callerGate, bank, clock, usecase.NewJournal(store, cfg.JournalBatchSize), publishers, m, log)
	if err != nil {
		log.Fatal("Failed to open ledger", "error", err)
	}

	handler := rest.NewHandler(ledger, bank, callerGate, log)
	e := router.New(handler, ledger, registry, cfg.AppVersion, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel()

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}

	log.Info("FlightSurety Service stopped")
}
