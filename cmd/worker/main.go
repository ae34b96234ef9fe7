package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/generator"
	graphneo4j "github.com/efebarandurmaz/framebind/internal/graph/neo4j"
	"github.com/efebarandurmaz/framebind/internal/observability"
	"github.com/efebarandurmaz/framebind/internal/server"
	temporalmod "github.com/efebarandurmaz/framebind/internal/temporal"
)

const version = "0.1.0"

func main() {
	configPath := "configs/framebind.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(observability.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr))

	ctx := context.Background()
	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		&server.ShutdownConfig{Timeout: cfg.Worker.ShutdownTimeout, Signals: server.DefaultShutdownConfig().Signals},
	)

	tcfg := observability.DefaultTracingConfig()
	tcfg.ServiceName = "framebind-worker"
	tcfg.ServiceVersion = version
	tcfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	if cfg.Tracing.Environment != "" {
		tcfg.Environment = cfg.Tracing.Environment
	}
	tp, err := observability.InitTracing(ctx, tcfg)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	gs.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))

	if cfg.Audit.Enabled {
		if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{Enabled: true, OutputPath: cfg.Audit.Path}); err != nil {
			log.Fatalf("audit: %v", err)
		}
		gs.Shutdown.Register(server.AuditLoggerShutdownHook(observability.Audit().Close))
	}

	fsys := afero.NewOsFs()
	repo, err := graphneo4j.Open(ctx, cfg, fsys)
	if err != nil {
		log.Fatalf("graph: %v", err)
	}
	if r, ok := repo.(*graphneo4j.Neo4jRepository); ok {
		gs.Health.RegisterCheck("graph", server.ConnectivityChecker("neo4j", r.Ping))
	} else {
		gs.Health.RegisterCheck("graph", server.OptionalChecker(false, "neo4j", nil))
	}
	gs.Shutdown.Register(server.GraphShutdownHook(repo.Close))

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Config:   cfg,
		Registry: generator.DefaultRegistry(),
		Fs:       fsys,
		Graph:    repo,
	})
	gs.Health.RegisterCheck("output", server.OutputDirChecker(fsys, cfg.Output.Dir))

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	gs.Health.RegisterCheck("temporal", server.ConnectivityChecker("temporal", func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, cfg.Output.Workers)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	gs.Shutdown.Register(server.TemporalWorkerShutdownHook(func() {
		w.Stop()
		c.Close()
	}))

	gs.Health.Mount("/metrics", observability.Metrics().Handler())
	gs.Start(cfg.Worker.HealthAddr)

	slog.Info("worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"libraries", len(cfg.Libraries),
		"health_addr", cfg.Worker.HealthAddr,
	)
	gs.Wait()
	slog.Info("worker stopped")
}
