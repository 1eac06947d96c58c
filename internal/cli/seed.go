package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/config"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/scorer"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

var (
	seedSellers = []string{
		"Acme Traders", "Bosphorus Textiles", "Golden Horn Ceramics", "Kapadokya Rugs",
		"Anatolia Spice Co", "Marmara Leather", "Ege Olive Works", "Pera Lighting",
		"Karakoy Coffee", "Izmir Cotton Mill",
	}
	seedProducts = []string{
		"Winter blankets", "Hand-painted plates", "Wool rug", "Saffron", "Leather bag",
		"Olive oil", "Brass lamp", "Coffee beans", "Bath towels",
	}
)

// SeedOptions holds the flags of the seed command.
type SeedOptions struct {
	Sellers     int
	Reviews     int
	Concurrency int
	Seed        uint64
	Offline     bool
}

// SeedResult is the json output of the seed command.
type SeedResult struct {
	Accepted   int64 `json:"accepted"`
	Duplicates int64 `json:"duplicates"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with generated reviews",
		Long: `Submit generated reviews through the full pipeline, several at a time,
so every aggregate is built by the same transactional path the API uses.
With --offline the trust scorer is replaced by a local score derived from
the rating.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Sellers, "sellers", 5, "number of sellers to review")
	cmd.Flags().IntVar(&opts.Reviews, "reviews-per-seller", 20, "reviews per seller")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 8, "submissions in flight")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "score locally instead of calling the trust scorer")

	return cmd
}

func runSeed(cmd *cobra.Command, rootOpts *RootOptions, opts *SeedOptions) error {
	if opts.Sellers < 1 || opts.Sellers > len(seedSellers) {
		return fmt.Errorf("--sellers must be between 1 and %d", len(seedSellers))
	}
	if opts.Reviews < 1 || opts.Concurrency < 1 {
		return fmt.Errorf("--reviews-per-seller and --concurrency must be positive")
	}

	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	// Parallel submissions for one seller contend on its aggregate row.
	cfg.AggregateMaxRetries = max(cfg.AggregateMaxRetries, 4*opts.Concurrency)
	if opts.Offline {
		rootOpts.deps.newScorer = func(*config.Config, *slog.Logger) scorer.Scorer { return offlineScorer() }
	}
	svc, err := rootOpts.buildServices(cmd.Context(), cfg, rootOpts.logger(cmd))
	if err != nil {
		return err
	}
	defer svc.close()

	inputs := generateSeedReviews(opts)

	var res SeedResult
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Concurrency)
	for _, in := range inputs {
		g.Go(func() error {
			return submitSeed(ctx, svc.reviews, in, &res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return (&output{format: rootOpts.Format, w: cmd.OutOrStdout()}).seed(res)
}

func submitSeed(ctx context.Context, reviews *service.ReviewService, in service.SubmitReviewInput, res *SeedResult) error {
	_, err := reviews.SubmitReview(ctx, in)
	switch {
	case err == nil:
		atomic.AddInt64(&res.Accepted, 1)
		return nil
	case errors.Is(err, apperrors.ErrDuplicateReview):
		atomic.AddInt64(&res.Duplicates, 1)
		return nil
	default:
		return fmt.Errorf("seed review of %s by %s: %w", in.Seller, in.ReviewerName, err)
	}
}

// generateSeedReviews is deterministic for a given seed.
func generateSeedReviews(opts *SeedOptions) []service.SubmitReviewInput {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5eed)) // #nosec G404 -- reproducible fixture data
	inputs := make([]service.SubmitReviewInput, 0, opts.Sellers*opts.Reviews)
	for s := 0; s < opts.Sellers; s++ {
		for r := 0; r < opts.Reviews; r++ {
			rating := 1 + rng.IntN(5)
			inputs = append(inputs, service.SubmitReviewInput{
				ReviewerName: fmt.Sprintf("reviewer-%04d", r),
				Seller:       seedSellers[s],
				Product:      seedProducts[rng.IntN(len(seedProducts))],
				Rating:       rating,
				Recommend:    domain.FormatRecommend(rating >= 3),
			})
		}
	}
	return inputs
}

// offlineScorer maps the rating linearly onto 20..100.
func offlineScorer() scorer.Scorer {
	return scorer.Func(func(_ context.Context, req scorer.Request) (scorer.Result, error) {
		return scorer.Result{
			Score:     float64(req.Rating) * 20,
			Sentiment: domain.SentimentFromRating(req.Rating),
		}, nil
	})
}
