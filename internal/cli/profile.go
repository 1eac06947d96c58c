package cli

import (
	"github.com/spf13/cobra"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <identifier>",
		Short: "Show a seller profile",
		Long: `Show the profile of a seller given its name or canonical ID: the stored
counters, stats computed from the most recent reviews, and the reviews
themselves newest first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runProfile(cmd *cobra.Command, opts *RootOptions, identifier string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	svc, err := opts.buildServices(cmd.Context(), cfg, opts.logger(cmd))
	if err != nil {
		return err
	}
	defer svc.close()

	profile, err := svc.profiles.GetSellerProfile(cmd.Context(), identifier)
	if err != nil {
		return err
	}
	return (&output{format: opts.Format, w: cmd.OutOrStdout()}).profile(profile)
}
