package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/uhyunpark/futures-ledger/params"
	"github.com/uhyunpark/futures-ledger/pkg/api"
	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
	"github.com/uhyunpark/futures-ledger/pkg/chain"
	"github.com/uhyunpark/futures-ledger/pkg/crypto"
	"github.com/uhyunpark/futures-ledger/pkg/storage"
	"github.com/uhyunpark/futures-ledger/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	if err := run(cfg, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("node_failed", "err", err)
	}
	sugar.Info("node_stopped")
}

func run(cfg params.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Ledger ----
	ledger, closeStore, err := openLedger(cfg.Ledger, sugar)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledger.SetMetrics(futures.NewMetrics(reg))

	journal, err := openJournal(cfg.Ledger.JournalFile, sugar)
	if err != nil {
		return err
	}
	defer journal.Close()

	// ---- Chain ----
	ticker := chain.NewTicker(chain.Height(cfg.Chain.StartHeight), cfg.Chain.BlockTime, chain.WallClock{})

	// ---- API Server ----
	apiServer, err := api.NewServer(ledger, ticker, api.Options{
		Domain:          crypto.DefaultDomain(cfg.API.ChainID),
		ReplayCacheSize: cfg.API.ReplayCacheSize,
		AllowedOrigins:  cfg.API.AllowedOrigins,
		BucketNearMax:   chain.Height(cfg.Buckets.NearMax),
		BucketMediumMax: chain.Height(cfg.Buckets.MediumMax),
		Gatherer:        reg,
		Logger:          sugar,
	})
	if err != nil {
		return err
	}

	ledger.Events = futures.MultiSink{journal, apiServer}

	// Log every N blocks to reduce noise
	const logInterval = chain.Height(100)
	ticker.OnBlock = func(h chain.Height) {
		apiServer.BroadcastBlock(h)
		if h%logInterval == 0 {
			sugar.Infow("chain_progress", "height", h, "futures", ledger.GetFutureCount())
		}
	}

	sugar.Infow("node_starting",
		"backend", cfg.Ledger.Backend,
		"futures", ledger.GetFutureCount(),
		"next_future_id", ledger.PeekNextID(),
		"start_height", cfg.Chain.StartHeight,
		"block_time_ms", cfg.Chain.BlockTime.Milliseconds(),
		"chain_id", cfg.API.ChainID)

	go func() {
		if err := ticker.Run(ctx); err != nil && ctx.Err() == nil {
			sugar.Errorw("ticker_failed", "err", err)
			stop()
		}
	}()

	return apiServer.Start(ctx, cfg.API.Addr)
}

type sinkCloser interface {
	futures.EventSink
	Close() error
}

func openJournal(path string, sugar *zap.SugaredLogger) (sinkCloser, error) {
	if path == "" {
		sugar.Info("event_journal_disabled")
		return storage.NewNopJournal(), nil
	}
	j, err := storage.NewFileJournal(path, sugar)
	if err != nil {
		return nil, err
	}
	sugar.Infow("event_journal_opened", "path", path)
	return j, nil
}

func openLedger(cfg params.Ledger, sugar *zap.SugaredLogger) (*futures.Ledger, func(), error) {
	var (
		ledger *futures.Ledger
		err    error
		closer = func() {}
	)

	switch cfg.Backend {
	case params.BackendMemory:
		ledger = futures.NewMemoryLedger()
	default:
		store, openErr := storage.NewPebbleStore(cfg.DBPath)
		if openErr != nil {
			return nil, nil, openErr
		}
		closer = func() {
			if err := store.Close(); err != nil {
				sugar.Errorw("store_close_failed", "err", err)
			}
		}
		if ledger, err = futures.NewLedger(store, store); err != nil {
			closer()
			return nil, nil, err
		}
		sugar.Infow("store_opened", "path", cfg.DBPath, "futures", store.Count())
	}

	ledger.Logger = sugar
	return ledger, closer, nil
}
