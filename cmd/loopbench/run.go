package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/loop/config"
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/validation"
	"github.com/kbukum/loop/version"
	"github.com/kbukum/loop/workload"
)

// benchConfig is the configuration file layout of loopbench.
type benchConfig struct {
	config.Config `yaml:",inline" mapstructure:",squash"`
	Workload      workload.Spec `yaml:"workload" mapstructure:"workload"`
}

// ApplyDefaults fills zero values, naming the program loopbench.
func (c *benchConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = programName
	}
	c.Config.ApplyDefaults()
	c.Workload.ApplyDefaults()
}

// Validate reports problems in every section at once.
func (c *benchConfig) Validate() error {
	return validation.New().
		Merge("", c.Config.Validate()).
		Merge("workload", c.Workload.Validate()).
		Validate()
}

type runFlags struct {
	configFile   string
	items        int
	delay        time.Duration
	mode         string
	workers      int
	capacity     int
	failEvery    int
	otlpEndpoint string
	asJSON       bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Map a synthetic workload and report the outcome",
		Example: `  loopbench run --items 10000 --workers 8
  loopbench run --mode async --delay 2ms --capacity 64
  loopbench run --otlp-endpoint localhost:4318`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runBench(cmd, cfg, f.asJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config", "", "Config file (default: search for config.yml)")
	flags.IntVar(&f.items, "items", 1000, "Number of items to map")
	flags.DurationVar(&f.delay, "delay", 0, "Time each mapping call takes")
	flags.StringVar(&f.mode, "mode", observability.ModeBlocking, "Pool variant: blocking or async")
	flags.IntVar(&f.workers, "workers", 0, "Number of workers (0 uses GOMAXPROCS)")
	flags.IntVar(&f.capacity, "capacity", 0, "Queue capacity (0 uses the worker count)")
	flags.IntVar(&f.failEvery, "fail-every", 0, "Fail every n-th item (0 never fails)")
	flags.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "Export traces and metrics to this OTLP/HTTP host:port")
	flags.BoolVar(&f.asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// loadConfig layers file, environment and explicitly set flags, in that
// order, and validates the result.
func loadConfig(cmd *cobra.Command, f runFlags) (*benchConfig, error) {
	cfg := &benchConfig{}
	opts := []config.Option{config.WithEnvPrefix(programName)}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if err := config.Load(programName, cfg, opts...); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("items") || cfg.Workload.Count == 0 {
		cfg.Workload.Count = f.items
	}
	if flags.Changed("delay") {
		cfg.Workload.Delay = f.delay
	}
	if flags.Changed("mode") {
		cfg.Workload.Mode = f.mode
	}
	if flags.Changed("fail-every") {
		cfg.Workload.FailEvery = f.failEvery
	}
	if flags.Changed("workers") {
		cfg.Pool.Workers = f.workers
	}
	if flags.Changed("capacity") {
		cfg.Pool.Capacity = f.capacity
	}
	if f.otlpEndpoint != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Endpoint = f.otlpEndpoint
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBench(cmd *cobra.Command, cfg *benchConfig, asJSON bool) error {
	ctx := cmd.Context()
	logger.Init(cfg.Logging)
	logger.RegisterDefaults("parallel", "async", "workers", programName)
	log := logger.Get(programName)

	shutdown, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name, version.Get().Short(), cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	metrics, err := observability.NewPoolMetrics(observability.Meter(programName))
	if err != nil {
		return err
	}

	runner := workload.Runner{
		Pool:    cfg.Pool,
		Metrics: metrics,
		Log:     log,
		Tracing: cfg.Telemetry.Enabled,
	}
	report, err := runner.Run(ctx, cfg.Workload)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintln(out, report); err != nil {
		return err
	}

	if !report.Complete() {
		return fmt.Errorf("incomplete run: %d items produced %d results (%d distinct)",
			report.Items, report.Results, report.Distinct)
	}
	return nil
}
