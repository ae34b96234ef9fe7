package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/generator"
	graphneo4j "github.com/efebarandurmaz/framebind/internal/graph/neo4j"
	"github.com/efebarandurmaz/framebind/internal/metrics"
	"github.com/efebarandurmaz/framebind/internal/observability"
	temporalmod "github.com/efebarandurmaz/framebind/internal/temporal"
)

func main() {
	var (
		configPath string
		libraries  []string
		all        bool
		inputPath  string
		outputPath string
		jsonReport bool
		prune      bool
		capability string
		index      bool
	)

	rootCmd := &cobra.Command{
		Use:          "framebind",
		Short:        "Assemble per-framework binding crates from header declaration dumps",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/framebind.yaml", "Config file path")

	sel := func(cmd *cobra.Command) {
		cmd.Flags().StringSliceVar(&libraries, "library", nil, "Library to process (repeatable)")
		cmd.Flags().BoolVar(&all, "all", false, "Process every configured library")
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate binding units for one or more libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if cmd.Flags().Changed("prune") {
				app.cfg.Output.Prune = prune
			}
			libs, err := resolveLibraries(app.cfg, libraries, all, inputPath, outputPath)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), app.cfg, libs, jsonReport)
		},
	}
	sel(generateCmd)
	generateCmd.Flags().StringVar(&inputPath, "input", "", "Declaration dump (overrides config; single library only)")
	generateCmd.Flags().StringVar(&outputPath, "output", "", "Output directory (overrides config; single library only)")
	generateCmd.Flags().BoolVar(&jsonReport, "json", false, "Output metrics as JSON")
	generateCmd.Flags().BoolVar(&prune, "prune", false, "Remove units the previous run wrote that are no longer produced")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify generated units are up to date without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.close()
			libs, err := resolveLibraries(app.cfg, libraries, all, inputPath, outputPath)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), app.cfg, libs)
		},
	}
	sel(checkCmd)
	checkCmd.Flags().StringVar(&inputPath, "input", "", "Declaration dump (overrides config; single library only)")
	checkCmd.Flags().StringVar(&outputPath, "output", "", "Output directory (overrides config; single library only)")

	librariesCmd := &cobra.Command{
		Use:   "libraries",
		Short: "List configured libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(configPath)
			if len(cfg.Libraries) == 0 {
				fmt.Println("No libraries configured.")
				return nil
			}
			fmt.Printf("%-20s %-20s %-22s %s\n", "LIBRARY", "LINK NAME", "LINKAGE", "INPUT")
			for _, name := range cfg.LibraryNames() {
				lib, err := cfg.Library(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-20s %-20s %-22s %s\n", lib.Name, lib.LinkName, lib.Linkage, lib.Input)
			}
			return nil
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Publish library exports to the symbol graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.close()
			libs, err := resolveLibraries(app.cfg, libraries, all, "", "")
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), app.cfg, libs, capability)
		},
	}
	sel(indexCmd)
	indexCmd.Flags().StringVar(&capability, "capability", "", "After indexing, list symbols gated on this feature")

	regenerateCmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Regenerate libraries through the Temporal worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if !all && len(libraries) == 0 {
				return errors.New("specify --library or --all")
			}
			input := temporalmod.RegenerateInput{Libraries: libraries, Prune: prune, Index: index}
			if all {
				input.Libraries = nil
			}
			return runRegenerate(cmd.Context(), app.cfg, input)
		},
	}
	sel(regenerateCmd)
	regenerateCmd.Flags().BoolVar(&prune, "prune", false, "Remove units no longer produced")
	regenerateCmd.Flags().BoolVar(&index, "index", false, "Index exports after generating")

	rootCmd.AddCommand(generateCmd, checkCmd, librariesCmd, indexCmd, regenerateCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	tp  *observability.TracerProvider
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tp.Shutdown(ctx); err != nil {
		slog.Warn("tracer shutdown", "error", err)
	}
	if err := observability.Audit().Close(); err != nil {
		slog.Warn("audit log close", "error", err)
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Default()
	}
	return cfg
}

// setup loads configuration, installs the default logger, opens the audit
// log when enabled and starts tracing.
func setup(ctx context.Context, configPath string) (*app, error) {
	cfg := loadConfig(configPath)
	slog.SetDefault(observability.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr))

	if cfg.Audit.Enabled {
		err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
			Enabled:    true,
			OutputPath: cfg.Audit.Path,
		})
		if err != nil {
			return nil, fmt.Errorf("init audit log: %w", err)
		}
	}

	tcfg := observability.DefaultTracingConfig()
	tcfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	if cfg.Tracing.Environment != "" {
		tcfg.Environment = cfg.Tracing.Environment
	}
	tp, err := observability.InitTracing(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return &app{cfg: cfg, tp: tp}, nil
}

func runGenerate(ctx context.Context, cfg *config.Config, libs []config.Library, jsonReport bool) error {
	m := metrics.New(cfg.Output.Target)
	reg := generator.DefaultRegistry()

	failed := 0
	for _, lib := range libs {
		res, err := generator.Run(ctx, generator.Options{
			Library:  lib,
			Target:   cfg.Output.Target,
			Workers:  cfg.Output.Workers,
			Prune:    cfg.Output.Prune,
			Registry: reg,
		})
		if err != nil {
			slog.Error("generation failed", "library", lib.Name, "error", err)
			m.AddError(lib.Name, err)
			failed++
			continue
		}
		m.AddLibrary(metrics.CollectLibrary(lib.Name, res.Package, res.Units, res.Changes, res.Pruned, res.Duration))
	}
	m.Finish()

	if jsonReport {
		data, err := m.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		m.PrintSummary(os.Stdout)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d libraries failed", failed, len(libs))
	}
	return nil
}

func runCheck(ctx context.Context, cfg *config.Config, libs []config.Library) error {
	reg := generator.DefaultRegistry()
	outOfDate := 0
	for _, lib := range libs {
		mismatches, err := generator.Check(ctx, generator.Options{
			Library:  lib,
			Target:   cfg.Output.Target,
			Workers:  cfg.Output.Workers,
			Registry: reg,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", lib.Name, err)
		}
		if len(mismatches) == 0 {
			fmt.Printf("%s: up to date\n", lib.Name)
			continue
		}
		fmt.Printf("%s: %d unit(s) out of date\n", lib.Name, len(mismatches))
		for _, mm := range mismatches {
			fmt.Printf("  %s\n", mm)
		}
		outOfDate += len(mismatches)
	}
	if outOfDate > 0 {
		return fmt.Errorf("%d unit(s) out of date", outOfDate)
	}
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, libs []config.Library, capability string) error {
	repo, err := graphneo4j.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	reg := generator.DefaultRegistry()
	for _, lib := range libs {
		ictx, span := observability.StartIndexSpan(ctx, lib.Name)
		err := indexLibrary(ictx, repo, reg, lib, capability)
		if err != nil {
			observability.RecordError(span, err)
		}
		span.End()
		if err != nil {
			return fmt.Errorf("%s: %w", lib.Name, err)
		}
	}
	return nil
}

func runRegenerate(ctx context.Context, cfg *config.Config, input temporalmod.RegenerateInput) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	workflowID := "framebind-regenerate-" + uuid.NewString()
	start := time.Now()
	run, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.RegenerateWorkflow, input)
	if err != nil {
		return fmt.Errorf("starting workflow: %w", err)
	}
	slog.Info("started workflow", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	observability.Audit().LogWorkflowStart(workflowID, input.Libraries)

	var out temporalmod.RegenerateOutput
	if err := run.Get(ctx, &out); err != nil {
		observability.Audit().LogWorkflowEnd(workflowID, time.Since(start), 1)
		return err
	}
	observability.Audit().LogWorkflowEnd(workflowID, time.Since(start), len(out.Errors))
	for _, r := range out.Results {
		fmt.Printf("%-20s units=%d exports=%d +%d ~%d -%d pruned=%d indexed=%d\n",
			r.Library, r.Units, r.Exports, len(r.Added), len(r.Changed), len(r.Removed), r.Pruned, r.Indexed)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("%d library run(s) failed", len(out.Errors))
	}
	return nil
}
