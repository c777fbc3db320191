package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/api"
	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/lifecycle"
	"github.com/redlattice/wsm/internal/observability"
	"github.com/redlattice/wsm/internal/orchestrator"
	"github.com/redlattice/wsm/internal/quota"
	"github.com/redlattice/wsm/internal/store"
)

func main() {
	var cfg api.Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, _ := observability.NewLogger(cfg.LogLevel)
	defer log.Sync()

	// Replace global logger
	zap.ReplaceGlobals(log)

	reg := prometheus.DefaultRegisterer
	observability.RegisterAll(reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}

	orch := orchestrator.New(orchestrator.Config{
		BaseURL: cfg.OrchestratorURL,
		APIKey:  cfg.OrchestratorAPIKey,
		Timeout: cfg.OrchestratorTimeout,
	})
	if err := orch.Authenticate(ctx); err != nil {
		log.Fatal("orchestrator auth failed", zap.Error(err))
	}

	limits, err := parseLimits(cfg)
	if err != nil {
		log.Fatal("quota config invalid", zap.Error(err))
	}

	manager := lifecycle.NewManager(
		store.NewWorkspaceStore(pool),
		store.NewSessionStore(pool),
		orch,
		limits,
		lifecycle.Config{
			Images: map[core.WorkspaceType]string{
				core.TypeEditor:   cfg.EditorImage,
				core.TypeBrowser:  cfg.BrowserImage,
				core.TypeDesktop:  cfg.DesktopImage,
				core.TypeProxy:    cfg.ProxyImage,
				core.TypeC2Client: cfg.C2ClientImage,
			},
			AccessURLBase: cfg.AccessURLBase,
			DefaultExpiry: cfg.DefaultExpiry,
			SessionTTL:    cfg.SessionTTL,
			SweepInterval: cfg.SweepInterval,
		},
		log,
	)
	manager.Start(ctx)
	defer manager.Stop()

	// Main API server
	apiHandler := api.NewAPI(pool, manager, log)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiHandler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		log.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("API server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down API server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("API server stopped")
}

func parseLimits(cfg api.Config) (quota.Limits, error) {
	maxCPU, err := core.ParseCPU(cfg.MaxCPUPerWorkspace)
	if err != nil {
		return quota.Limits{}, err
	}
	maxMem, err := core.ParseMemory(cfg.MaxMemoryPerWorkspace)
	if err != nil {
		return quota.Limits{}, err
	}
	maxTotalCPU, err := core.ParseCPU(cfg.MaxTotalCPUPerUser)
	if err != nil {
		return quota.Limits{}, err
	}
	maxTotalMem, err := core.ParseMemory(cfg.MaxTotalMemoryPerUser)
	if err != nil {
		return quota.Limits{}, err
	}
	return quota.Limits{
		MaxWorkspacesPerUser:  cfg.MaxWorkspacesPerUser,
		MaxCPUPerWorkspace:    maxCPU,
		MaxMemoryPerWorkspace: maxMem,
		MaxTotalCPUPerUser:    maxTotalCPU,
		MaxTotalMemoryPerUser: maxTotalMem,
	}, nil
}
