// Command cropvision submits crop photographs to a remote pest and disease
// identification service through the local media pipeline: content-hash
// deduplication, image optimization, rate-limit cooldowns, and classified
// failure reporting.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360/cropvision/config"
	"github.com/c360/cropvision/identify"
	"github.com/c360/cropvision/imaging"
	"github.com/c360/cropvision/metric"
	"github.com/c360/cropvision/pkg/cache"
)

// Version information, set at build time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli := parseFlags()

	if cli.ShowHelp {
		printDetailedHelp()
		return 0
	}
	if cli.ShowVersion {
		fmt.Printf("cropvision %s (built %s)\n", Version, BuildTime)
		return 0
	}

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}

	if cli.Validate {
		fmt.Println("configuration valid")
		return 0
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()

	reportCache, err := cache.New[*identify.Report](ctx, cfg.Service.Cache,
		cache.WithMetrics[*identify.Report](registry, "reports"))
	if err != nil {
		logger.Error("failed to create report cache", "error", err)
		return 1
	}

	transcoder := imaging.NewTranscoder(nil,
		imaging.WithLogger(logger),
		imaging.WithMetrics(registry.CoreMetrics()))

	svc, err := identify.NewService(ctx, cfg.Service,
		identify.WithServiceLogger(logger),
		identify.WithServiceMetrics(registry.CoreMetrics()),
		identify.WithCache(reportCache),
		identify.WithTranscoder(transcoder))
	if err != nil {
		logger.Error("failed to create identification service", "error", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	if cli.StatusOnly {
		return printStatus(ctx, svc)
	}

	if files := flagArgs(); len(files) > 0 {
		return identifyFiles(ctx, svc, files, logger)
	}

	return serveMetrics(ctx, cfg, registry, logger, cli.ShutdownTimeout)
}

func printStatus(ctx context.Context, svc *identify.Service) int {
	status := svc.Status(ctx)
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
	if !status.Available {
		return 1
	}
	return 0
}

// identifyFiles runs the given photographs through one batch and prints the
// reports in input order.
func identifyFiles(ctx context.Context, svc *identify.Service, files []string, logger *slog.Logger) int {
	reqs := make([]*identify.Request, 0, len(files))
	for _, path := range files {
		image, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read image file", "path", path, "error", err)
			return 1
		}
		reqs = append(reqs, &identify.Request{Image: image})
	}

	results := svc.IdentifyBatch(ctx, reqs)

	exitCode := 0
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i, item := range results {
		if item.Err != nil {
			logger.Error("identification failed", "path", files[i], "error", item.Err)
			exitCode = 1
			continue
		}
		if err := enc.Encode(item.Report); err != nil {
			logger.Error("failed to encode report", "path", files[i], "error", err)
			exitCode = 1
		}
	}
	return exitCode
}

// serveMetrics exposes the Prometheus endpoint until the process is
// interrupted.
func serveMetrics(ctx context.Context, cfg *config.Config, registry *metric.MetricsRegistry,
	logger *slog.Logger, shutdownTimeout time.Duration) int {
	if !cfg.Metrics.Enabled {
		logger.Info("metrics disabled and no image files given, nothing to do")
		return 0
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", cfg.Metrics.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
		return 1
	}
	return 0
}
