// Command swarm is the worker/server daemon: it drains the shared job
// queue, fronts it with a gRPC service for out-of-process callers, and
// exposes Prometheus metrics and OpenTelemetry tracing. The lex/parse
// front-end and the CLI's program-source surface are out of scope here
// (an external collaborator per spec §1) — this binary only ever consumes
// already-serialized job payloads, whether pushed onto the queue by
// another Swarm process or submitted over rpcapi's SubmitJob RPC.
// Grounded on Jeeves-Cluster-Organization-jeeves-core's cmd/main.go for the
// flag/signal/graceful-shutdown shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/swarm-lang/swarm/internal/config"
	"github.com/swarm-lang/swarm/internal/evaluator"
	"github.com/swarm-lang/swarm/internal/history"
	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/lock"
	"github.com/swarm-lang/swarm/internal/metrics"
	"github.com/swarm-lang/swarm/internal/obslog"
	"github.com/swarm-lang/swarm/internal/queue"
	"github.com/swarm-lang/swarm/internal/rpcapi"
	"github.com/swarm-lang/swarm/internal/store"
	"github.com/swarm-lang/swarm/internal/tracing"
	"github.com/swarm-lang/swarm/internal/waiter"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration override file")
	clearQueue := flag.Bool("clear-queue", false, "delete the shared job queue list on startup, then continue")
	jobHistoryPath := flag.String("job-history", "", "path to a sqlite file recording every terminal job status transition")
	grpcAddr := flag.String("grpc-addr", ":7443", "address the SubmitJob/AwaitJob gRPC service listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "address the Prometheus /metrics endpoint listens on")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP/gRPC collector address; tracing is disabled when empty")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := obslog.New(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Verbose = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "swarm", *otelEndpoint)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	kvStore := kv.New(cfg.RedisHost, cfg.RedisPort)
	defer kvStore.Close()

	locks := lock.NewManager(kvStore, time.Duration(cfg.LockSleepMicros)*time.Microsecond, cfg.LockMaxRetries)
	sharedStore := store.NewShared(kvStore, locks, cfg.RedisPrefix)
	waiters := waiter.NewRegistry(kvStore, cfg.RedisPrefix+"job_status_channel_", time.Duration(cfg.WaiterSleepMicros)*time.Microsecond, log)

	interp := evaluator.New(sharedStore, nil, cfg.QueueFilters, log)
	q := queue.New(kvStore, waiters, interp, cfg.RedisPrefix, cfg.QueueFilters, time.Duration(cfg.QueueSleepMicros)*time.Microsecond, log)
	interp.SetRemote(q)

	if *jobHistoryPath != "" {
		h, err := history.Open(*jobHistoryPath, log)
		if err != nil {
			log.Error("failed to open job history log", "error", err)
			os.Exit(1)
		}
		defer h.Close()
		q.SetHistory(h)
	}

	if *clearQueue {
		if err := q.ClearQueue(ctx); err != nil {
			log.Error("failed to clear job queue", "error", err)
			os.Exit(1)
		}
		log.Info("cleared shared job queue")
	}

	rpcServer, err := rpcapi.New(q, log)
	if err != nil {
		log.Error("failed to build rpc server", "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&rpcapi.ServiceDesc, rpcServer)

	lis, err := net.Listen("tcp", *grpcAddr)
	if err != nil {
		log.Error("failed to listen for gRPC", "addr", *grpcAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		log.Info("rpcapi listening", "addr", *grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server stopped", "error", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: metricsMux}
	go func() {
		log.Info("metrics listening", "addr", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	workers, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.MaxThreads; i++ {
		workers.Go(func() error {
			runWorker(workerCtx, q, time.Duration(cfg.QueueSleepMicros)*time.Microsecond, log)
			return nil
		})
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	config.SignalShutdown()

	if err := workers.Wait(); err != nil {
		log.Warn("worker pool stopped with error", "error", err)
	}

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown", "error", err)
	}

	fmt.Fprintln(os.Stderr, "swarm: stopped")
}

// runWorker drains the shared queue until config.ShuttingDown (spec §5's
// checkpoint-between-polls discipline), sleeping the configured queue
// interval (idle) between empty polls so an idle worker doesn't spin.
func runWorker(ctx context.Context, q *queue.Queue, idle time.Duration, log *slog.Logger) {
	for {
		if config.ShuttingDown() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		did, err := q.WorkOnce(ctx)
		if err != nil {
			log.Error("work_once failed", "error", err)
			continue
		}
		if !did {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
		}
	}
}
