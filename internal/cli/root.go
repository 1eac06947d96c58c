package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/app"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/config"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/scorer"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Driver   string // overrides STORE_DRIVER when set
	LogLevel string

	deps deps
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// deps are the seams the commands reach the outside world through.
type deps struct {
	environ   func() map[string]string
	openStore func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error)
	newScorer func(cfg *config.Config, logger *slog.Logger) scorer.Scorer
}

func defaultDeps() deps {
	return deps{
		environ: environ,
		openStore: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
			return app.OpenStore(ctx, cfg, nil, logger)
		},
		newScorer: func(cfg *config.Config, logger *slog.Logger) scorer.Scorer {
			return scorer.NewClient(scorer.Config{
				BaseURL:    cfg.ScorerURL,
				Timeout:    cfg.ScorerTimeout,
				MaxRetries: cfg.ScorerMaxRetries,
			}, prometheus.NewRegistry(), logger)
		},
	}
}

// NewRootCommand creates the root command for the trustctl CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	opts := &RootOptions{deps: d}

	cmd := &cobra.Command{
		Use:   "trustctl",
		Short: "Operate the seller trust store",
		Long: `trustctl applies schema migrations, inspects seller profiles, submits
reviews and seeds fixture data directly against the store configured in
the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "store driver override (postgres|memory)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}

// loadConfig reads the service configuration with the flag overrides
// applied on top of the environment.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	vars := o.deps.environ()
	if o.Driver != "" {
		vars["STORE_DRIVER"] = o.Driver
	}
	return config.LoadFrom(vars)
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logger.NewWithWriter("trustctl", o.LogLevel, cmd.ErrOrStderr())
}

// services is the part of the service graph the commands drive. Redis and
// Kafka stay out of it: the CLI neither caches nor publishes.
type services struct {
	reviews  *service.ReviewService
	profiles *service.ProfileService
	close    func()
}

func (o *RootOptions) buildServices(ctx context.Context, cfg *config.Config, log *slog.Logger) (*services, error) {
	store, closeStore, err := o.deps.openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	metrics := service.NewMetrics(prometheus.NewRegistry())
	directory := service.NewDirectory(store)
	guard := service.NewDuplicateGuard(store.Reviews())
	engine := service.NewAggregateEngine(store, directory, guard, metrics, log, cfg.AggregateMaxRetries)

	return &services{
		reviews: service.NewReviewService(directory, guard, engine, o.deps.newScorer(cfg, log), nil, nil, metrics, log,
			service.SubmissionTimeouts{
				StepTimeout:  cfg.SubmissionStepTimeout,
				ScoreTimeout: cfg.ScorerTimeout,
			}),
		profiles: service.NewProfileService(directory, store.Reviews(), nil, log, service.ProfileConfig{
			ReviewLimit:  cfg.ProfileReviewLimit,
			RecentWindow: cfg.ProfileRecentWindow,
		}),
		close: closeStore,
	}, nil
}
