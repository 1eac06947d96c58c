package cli

import (
	"github.com/spf13/cobra"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
)

// SubmitOptions holds the flags of the submit command.
type SubmitOptions struct {
	Reviewer  string
	Seller    string
	Product   string
	Rating    int
	Recommend string
	Comment   string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a review through the full pipeline",
		Long: `Submit one review exactly as the API would: validation, duplicate check,
trust scoring and the atomic aggregate update. An unknown seller is
created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Reviewer, "reviewer", "", "reviewer name (required)")
	cmd.Flags().StringVar(&opts.Seller, "seller", "", "seller name or ID (required)")
	cmd.Flags().StringVar(&opts.Product, "product", "", "product or context of the deal (required)")
	cmd.Flags().IntVar(&opts.Rating, "rating", 0, "rating from 1 to 5 (required)")
	cmd.Flags().StringVar(&opts.Recommend, "recommend", "", "Yes or No (required)")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "free-form comment")
	for _, name := range []string{"reviewer", "seller", "product", "rating", "recommend"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runSubmit(cmd *cobra.Command, rootOpts *RootOptions, opts *SubmitOptions) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	svc, err := rootOpts.buildServices(cmd.Context(), cfg, rootOpts.logger(cmd))
	if err != nil {
		return err
	}
	defer svc.close()

	result, err := svc.reviews.SubmitReview(cmd.Context(), service.SubmitReviewInput{
		ReviewerName: opts.Reviewer,
		Seller:       opts.Seller,
		Product:      opts.Product,
		Rating:       opts.Rating,
		Recommend:    opts.Recommend,
		Comment:      opts.Comment,
	})
	if err != nil {
		return err
	}
	return (&output{format: rootOpts.Format, w: cmd.OutOrStdout()}).submission(result)
}
