package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/solatis/cohortkeeper/internal/core/api"
	"github.com/solatis/cohortkeeper/internal/core/metrics"
	"github.com/solatis/cohortkeeper/internal/core/server"
	"github.com/solatis/cohortkeeper/internal/export"
	"github.com/solatis/cohortkeeper/internal/segment"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC segment service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9090", "prometheus /metrics listen address (empty disables)")
	serveCmd.Flags().String("export-url", "", "cohort endpoint URL")
	serveCmd.Flags().Duration("export-timeout", export.DefaultTimeout, "delivery timeout")
	serveCmd.Flags().String("cohort-name", "cohort", "default cohort name")
	addEngineFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, conn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	executor := newExecutor(cfg, recorder)
	service, err := api.NewSegmentService(api.Deps{
		Executor:   executor,
		Segments:   segment.Predefined(executor.Now),
		Events:     st,
		Log:        st,
		Exporter:   export.NewHTTPExporter(cfg.ExporterConfig()),
		CohortName: cfg.Export.CohortName,
		Metrics:    recorder,
		Logger:     slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	slog.Info("starting cohortkeeper segment service",
		"version", Version,
		"addr", grpcServer.Addr(),
		"metrics_addr", cfg.Server.MetricsAddr,
		"export_enabled", cfg.Export.URL != "",
	)

	errChan := make(chan error, 2)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown failed", "error", err)
			}
		}
		return grpcServer.Shutdown(shutdownCtx)
	}
}
