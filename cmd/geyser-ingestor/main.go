// Command geyser-ingestor subscribes to a Geyser transaction feed, decodes
// Pump.fun trades and Raydium swaps, and batches them into Postgres.
// SIGINT/SIGTERM trigger an orderly drain; startup failures exit nonzero.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	_ "go.uber.org/automaxprocs"

	"github.com/yurei-io/geyser-ingestor/internal/codec"
	"github.com/yurei-io/geyser-ingestor/internal/config"
	"github.com/yurei-io/geyser-ingestor/internal/event"
	"github.com/yurei-io/geyser-ingestor/internal/logging"
	"github.com/yurei-io/geyser-ingestor/internal/metrics"
	"github.com/yurei-io/geyser-ingestor/internal/queue"
	"github.com/yurei-io/geyser-ingestor/internal/subscribe"
	"github.com/yurei-io/geyser-ingestor/internal/writer"
)

const metricsAddr = ":9090"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "geyser-ingestor: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	debug := flag.Bool("debug", false, "enable debug logging (overrides YUREI_LOG_LEVEL)")
	flag.Parse()

	bootLogger := logging.New(logging.LevelInfo, false)
	bootLogger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting geyser-ingestor")

	cfg, err := config.LoadConfig(&bootLogger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *debug {
		cfg.LogLevel = "DEBUG"
		bootLogger.Info().Msg("debug mode enabled via -debug flag")
	}

	logging.SetLevel(cfg.ParsedLogLevel())
	logger := logging.New(cfg.ParsedLogLevel(), cfg.LogColor)
	cfg.Print()
	cfg.LogConfig(logger)

	m := metrics.New()
	q := queue.New[event.Event](cfg.QueueCapacity, m.IncQueuePush, m.IncQueuePop)

	subCfg, err := buildSubscribeConfig(cfg)
	if err != nil {
		return fmt.Errorf("build subscribe config: %w", err)
	}

	subClient := subscribe.New(subCfg, q, m, logging.Component(logger, "subscribe"))
	dbWriter := writer.New(cfg.DBURL, q, m, logging.Component(logger, "writer"))

	logger.Info().
		Str("endpoint", cfg.GeyserEndpoint).
		Bool("pumpfun_enabled", cfg.PumpfunEnabled).
		Bool("raydium_enabled", cfg.RaydiumEnabled).
		Int("queue_capacity", cfg.QueueCapacity).
		Msg("geyser-ingestor ready, entering run loop")

	startTime := time.Now()
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok uptime=%.1fs\n", time.Since(startTime).Seconds())
	})
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writerCtx, writerCancel := context.WithCancel(context.Background())
	defer writerCancel()

	var group errgroup.Group
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return dbWriter.Run(writerCtx)
	})
	subClient.Start()

	<-sigCtx.Done()
	logger.Info().Msg("shutdown signal received, stopping ingestor")

	// Stop the producer first, then close the queue so the writer drains
	// and performs its final flush before the join.
	subClient.Stop()
	q.Close()
	_ = metricsServer.Close()

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}

	logger.Info().Str("summary", m.Snapshot().LogSummary()).Msg("geyser-ingestor stopped")
	return nil
}

// buildSubscribeConfig resolves config's base58 program ids (already
// validated by config.Validate) into the fixed-size ids subscribe.Config
// wants.
func buildSubscribeConfig(cfg *config.Config) (subscribe.Config, error) {
	out := subscribe.Config{
		Endpoint:          cfg.GeyserEndpoint,
		Authority:         cfg.GeyserAuthority,
		AuthToken:         cfg.GeyserAuthToken,
		PumpfunEnabled:    cfg.PumpfunEnabled,
		RaydiumEnabled:    cfg.RaydiumEnabled,
		ResumeFromSlot:    cfg.ResumeFromSlot,
		ResumeFromSlotSet: cfg.ResumeFromSlotSet,
	}
	if cfg.PumpfunEnabled {
		id, err := codec.DecodeBase58To32(cfg.PumpfunProgram)
		if err != nil {
			return out, fmt.Errorf("pumpfun program id: %w", err)
		}
		out.PumpfunProgram = id
	}
	if cfg.RaydiumEnabled {
		id, err := codec.DecodeBase58To32(cfg.RaydiumProgram)
		if err != nil {
			return out, fmt.Errorf("raydium program id: %w", err)
		}
		out.RaydiumProgram = id
	}
	return out, nil
}
