package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inquestai/inquest/internal/audit"
	"github.com/inquestai/inquest/internal/config"
	"github.com/inquestai/inquest/internal/engine"
	"github.com/inquestai/inquest/internal/events"
	"github.com/inquestai/inquest/internal/observability"
	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/report"
	"github.com/inquestai/inquest/internal/tool"
	"github.com/inquestai/inquest/internal/tool/builtins"
	"github.com/inquestai/inquest/pkg/version"
)

var (
	runOutput      string
	runConcurrency int
	runNoAudit     bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute an investigation plan",
	Long: `Load a plan document (YAML or JSON), execute it against the
configured event store, and print the compiled report.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "Report format: text or json")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Override the configured concurrency limit")
	runCmd.Flags().BoolVar(&runNoAudit, "no-audit", false, "Skip persisting the audit trail")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	logger := observability.NewLogger(os.Stderr, logLevel, cfg.Logging.Format)

	p, err := plan.ParseFile(args[0])
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, cfg.Tracing, version.Version)
	if err != nil {
		return err
	}
	defer tp.Shutdown(ctx)

	client, err := builtins.NewHTTPClient(builtins.HTTPClientConfig{
		Endpoint: cfg.EventStore.Endpoint,
		Username: cfg.EventStore.Username,
		Password: cfg.EventStore.Password,
		Insecure: cfg.EventStore.Insecure,
		Timeout:  cfg.EventStore.Timeout,
	})
	if err != nil {
		return err
	}

	registry := tool.NewRegistry()
	if err := builtins.Register(registry, client); err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithStepTimeout(cfg.Engine.StepTimeout),
		engine.WithRetryPolicy(retryPolicy(cfg.Engine.Retry)),
	}

	concurrency := cfg.Engine.Concurrency
	if runConcurrency > 0 {
		concurrency = runConcurrency
	}
	opts = append(opts, engine.WithConcurrency(concurrency))

	if cfg.Tracing.Enabled {
		opts = append(opts, engine.WithTracer(tp.Tracer("inquest")))
	}

	if !runNoAudit {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o755); err != nil {
			return err
		}
		store, err := audit.OpenStore(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		trail := audit.NewTrail(store,
			audit.WithTrailLogger(logger),
			audit.WithFlushInterval(cfg.Audit.FlushInterval),
		)
		defer trail.Close()
		opts = append(opts, engine.WithAuditTrail(trail))
	}

	bus := events.NewBus()
	defer bus.Close()
	opts = append(opts, engine.WithEventBus(bus))

	if verbose {
		ch, unsub := bus.Subscribe(256)
		defer unsub()
		go printProgress(ch)
	}

	eng := engine.New(tool.NewInvoker(registry), opts...)

	result, err := eng.Execute(ctx, p)
	if err != nil {
		return err
	}

	compiled := report.Compile(p, result)
	switch runOutput {
	case "json":
		raw, err := report.RenderJSON(compiled)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	default:
		cmd.OutOrStdout().Write(report.RenderText(compiled))
	}

	return nil
}

func retryPolicy(rc config.RetryConfig) engine.RetryPolicy {
	return engine.RetryPolicy{
		MaxAttempts:     rc.MaxAttempts,
		InitialInterval: rc.InitialInterval,
		MaxInterval:     rc.MaxInterval,
		Multiplier:      rc.Multiplier,
	}
}

// printProgress streams lifecycle events to stderr while a run executes.
func printProgress(ch <-chan events.Event) {
	for evt := range ch {
		if evt.StepID.IsZero() {
			fmt.Fprintf(os.Stderr, "  %s %s\n", evt.Timestamp.Format("15:04:05"), evt.Type)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s %s step=%s\n", evt.Timestamp.Format("15:04:05"), evt.Type, evt.StepID)
	}
}
