package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resenas/internal/reviews"
	"resenas/internal/storage"
	synchub "resenas/internal/sync"
	"resenas/pkg/logger"
	"resenas/pkg/tracing"
	"resenas/pkg/utils"
)

const serviceName = "resenas-api"

func main() {
	os.Exit(serve(os.Args[1:]))
}

// serve returns the process exit code so deferred log syncing runs before
// the process exits.
func serve(args []string) int {
	fs := flag.NewFlagSet("api-server", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("RESENAS_CONFIG"), "path to YAML config file")
	port := fs.Int("port", 0, "HTTP port (overrides config)")
	data := fs.String("data", "", "review document path (overrides config)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *data != "" {
		cfg.StoragePath = *data
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg utils.Config, log *zap.Logger) error {
	ctx := context.Background()

	tp, shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	backend, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	store := reviews.NewStore(backend, log.Named("reviews"),
		reviews.WithStrictLoad(cfg.Storage.StrictLoad),
		reviews.WithTracer(tp.Tracer("resenas/reviews")),
	)
	hub := synchub.NewHub(log.Named("sync"))

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(store, hub, log, tp.Tracer("resenas/http"))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var tcpSrv *synchub.Server
	if cfg.Sync.TCPAddr != "" {
		tcpSrv = synchub.NewServer(cfg.Sync.TCPAddr, hub, log.Named("sync"))
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	if tcpSrv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- fmt.Errorf("tcp sync: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http api listening",
			zap.Int("port", cfg.Port),
			zap.String("storage", store.Backend()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.Stringer("signal", sig))
	case runErr = <-errCh:
		log.Error("server error", zap.Error(runErr))
	}

	log.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			log.Warn("tcp shutdown", zap.Error(err))
		}
	}

	wg.Wait()
	log.Info("servers stopped")
	return runErr
}
