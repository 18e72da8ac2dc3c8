package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/TrackLedger/config"
	"github.com/BearBump/TrackLedger/internal/broker/kafka"
	"github.com/BearBump/TrackLedger/internal/cache/rediscache"
	"github.com/BearBump/TrackLedger/internal/services/ledger"
	"github.com/BearBump/TrackLedger/internal/storage/filestore"
	"github.com/BearBump/TrackLedger/internal/storage/pgsnapshot"
)

func main() {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	if cfg.Ledger.PIN == "" {
		panic("ledger.pin is required")
	}

	store, closeStore, err := openStorage(cfg)
	if err != nil {
		panic(err)
	}
	defer closeStore()

	opts := ledger.Options{}

	if cfg.Redis.Host != "" {
		cacheTTL := time.Duration(cfg.Ledger.HistoryCacheTTLSeconds) * time.Second
		if cacheTTL <= 0 {
			cacheTTL = 10 * time.Minute
		}
		opts.Cache = rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		opts.CacheTTL = cacheTTL
	}

	if cfg.Kafka.Host != "" {
		topic := cfg.Kafka.RecordUpdatedTopicName
		if topic == "" {
			topic = "record.updated"
		}
		producer := kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
		defer func() { _ = producer.Close() }()
		opts.Producer = producer
		opts.Topic = topic
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := ledger.New(ctx, store, cfg.Ledger.PIN, opts)
	if err != nil {
		panic(err)
	}

	if err := runLedgerAPI(ctx, ledgerAPIOpts{
		httpAddr: cfg.Ledger.HTTPAddr,
	}, svc); err != nil && err != context.Canceled {
		panic(err)
	}
}

func openStorage(cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.Ledger.Storage {
	case "", "file":
		dataDir := cfg.Ledger.DataDir
		if dataDir == "" {
			dataDir = "./data"
		}
		st, err := filestore.New(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "postgres":
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		st, err := openPostgresWithRetry(connString, 60*time.Second)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger.storage %q", cfg.Ledger.Storage)
	}
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pgsnapshot.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgsnapshot.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %v", wait, lastErr)
}
