package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hourglass/pkg/config"
	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/identity"
	"github.com/Sumatoshi-tech/hourglass/pkg/observability"
	"github.com/Sumatoshi-tech/hourglass/pkg/pipeline"
	"github.com/Sumatoshi-tech/hourglass/pkg/version"
)

const (
	hoursCmdUse   = "hours [repository]"
	hoursCmdShort = "Estimate hours worked per contributor"

	metricsShutdownTimeout = 5 * time.Second
)

var errNegativeLimit = errors.New("limit must not be negative")

// Flags bound to config keys; they override the config file and env vars
// only when set.
var hoursFlagKeys = map[string]string{
	"workers":               "mining.workers",
	"line-stats":            "mining.line_stats",
	"file-stats":            "mining.file_stats",
	"object-cache-size":     "mining.object_cache_size",
	"rules":                 "identity.rules_path",
	"omit-unify-identities": "identity.omit_unify",
	"ignore-bots":           "identity.ignore_bots",
	"show-pii":              "output.show_pii",
	"format":                "output.format",
	"log-level":             "logging.level",
	"otlp-endpoint":         "telemetry.otlp_endpoint",
	"metrics-addr":          "telemetry.metrics_addr",
}

// hoursFlags holds flags that are not part of the persistent config.
type hoursFlags struct {
	configPath  string
	since       string
	limit       int
	firstParent bool
	noColor     bool
}

// NewHoursCommand creates the hours subcommand.
func NewHoursCommand() *cobra.Command {
	var flags hoursFlags

	cmd := &cobra.Command{
		Use:   hoursCmdUse,
		Short: hoursCmdShort,
		Long: `Walk the history reachable from HEAD and estimate each contributor's hours.

Commits closer than two hours apart count their gap as work; every streak
starts with a flat two hours. Ctrl-C stops the history walk or the mining
early and prints the partial result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := "."
			if len(args) > 0 {
				repoPath = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runHours(ctx, cmd, repoPath, flags)
		},
	}

	f := cmd.Flags()
	f.Int("workers", config.DefaultMiningWorkers, "tree diff workers (0 = one per CPU)")
	f.Bool("line-stats", config.DefaultMiningLineStats, "count added and removed lines (slow)")
	f.Bool("file-stats", config.DefaultMiningFileStats, "count added, removed and modified files")
	f.String("object-cache-size", config.DefaultMiningObjectCacheSize, "object cache budget shared by workers (e.g. 850MiB)")
	f.String("rules", config.DefaultIdentityRulesPath, "YAML identity rules file")
	f.Bool("omit-unify-identities", config.DefaultIdentityOmitUnify, "report one entry per email instead of per person")
	f.Bool("ignore-bots", config.DefaultIdentityIgnoreBots, "skip authors whose name ends in [bot]")
	f.Bool("show-pii", config.DefaultOutputShowPII, "print names and emails of contributors")
	f.String("format", config.DefaultOutputFormat, "output format: text, json or yaml")
	f.String("log-level", config.DefaultLoggingLevel, "log level: debug, info, warn or error")
	f.String("otlp-endpoint", "", "OTLP gRPC collector address for traces and metrics")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")

	f.StringVar(&flags.configPath, "config", "", "config file (default: hourglass.yaml in ., ./config or ~/.config/hourglass)")
	f.StringVar(&flags.since, "since", "", "only commits after this time (duration like 720h, RFC3339 or YYYY-MM-DD)")
	f.IntVar(&flags.limit, "limit", 0, "maximum number of commits to walk (0 = all)")
	f.BoolVar(&flags.firstParent, "first-parent", false, "follow only first parents")
	f.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	return cmd
}

func loadHoursConfig(cmd *cobra.Command, flags hoursFlags) (*config.Config, error) {
	err := config.LoadDotEnv(config.DotEnvFile)
	if err != nil {
		return nil, err
	}

	bindings := make([]config.FlagBinding, 0, len(hoursFlagKeys))
	for name, key := range hoursFlagKeys {
		bindings = append(bindings, config.FlagBinding{Key: key, Flag: cmd.Flags().Lookup(name)})
	}

	cfg, err := config.LoadConfig(flags.configPath, bindings...)
	if err != nil {
		return nil, err
	}

	if flags.noColor {
		cfg.Output.Color = false
	}

	return cfg, nil
}

func runHours(ctx context.Context, cmd *cobra.Command, repoPath string, flags hoursFlags) error {
	cfg, err := loadHoursConfig(cmd, flags)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	logger := providers.Logger

	if providers.MetricsHandler != nil {
		server, serveErr := observability.StartMetricsServer(cfg.Telemetry.MetricsAddr, providers.MetricsHandler, logger)
		if serveErr != nil {
			return serveErr
		}

		logger.Info("serving metrics", "addr", server.Addr())

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()

			_ = server.Shutdown(shutdownCtx)
		}()
	}

	metrics, err := observability.NewMiningMetrics(providers.Meter)
	if err != nil {
		return err
	}

	opts, err := buildRunOptions(cfg, flags, metrics, logger)
	if err != nil {
		return err
	}

	repo, err := gitlib.LoadRepository(repoPath)
	if err != nil {
		return err
	}
	defer repo.Free()

	start := time.Now()
	report, runErr := pipeline.Run(ctx, repo, opts)

	interrupted := report != nil && report.Interrupted
	metrics.RecordRun(ctx, time.Since(start), interrupted, framework.WorkerFailures(runErr), runErr)

	if runErr != nil {
		return runErr
	}

	if interrupted {
		logger.Warn("interrupted, printing partial result")
	}

	return writeReport(cmd.OutOrStdout(), report, renderOptions{
		Format:  cfg.Output.Format,
		ShowPII: cfg.Output.ShowPII,
		Color:   cfg.Output.Color,
	})
}

func initObservability(cfg *config.Config, logOutput io.Writer) (observability.Providers, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON()
	obsCfg.LogPII = cfg.Output.ShowPII
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != ""

	providers, err := observability.InitWithWriter(obsCfg, logOutput)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

func buildRunOptions(cfg *config.Config, flags hoursFlags, progress framework.Progress, logger *slog.Logger) (pipeline.Options, error) {
	mining, err := cfg.Mining.Framework()
	if err != nil {
		return pipeline.Options{}, err
	}

	rules, err := identity.LoadTable(cfg.Identity.RulesPath)
	if err != nil {
		return pipeline.Options{}, err
	}

	collect := pipeline.CollectOptions{Limit: flags.limit}
	collect.FirstParent = flags.firstParent

	if flags.since != "" {
		since, parseErr := gitlib.ParseTime(flags.since)
		if parseErr != nil {
			return pipeline.Options{}, fmt.Errorf("--since: %w", parseErr)
		}

		collect.Since = &since
	}

	if flags.limit < 0 {
		return pipeline.Options{}, fmt.Errorf("%w: --limit %d", errNegativeLimit, flags.limit)
	}

	return pipeline.Options{
		Collect:             collect,
		Mining:              mining,
		FileStats:           cfg.Mining.FileStats,
		Rules:               rules,
		OmitUnifyIdentities: cfg.Identity.OmitUnify,
		IgnoreBots:          cfg.Identity.IgnoreBots,
		Progress:            progress,
		Logger:              logger,
	}, nil
}
