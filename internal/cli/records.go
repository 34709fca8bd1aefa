package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newSubmissionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submissions [id]",
		Short: "Print the submissions of one wizard, or of all wizards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				groups, err := a.engine().ListAllSubmissions(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), groups)
			}
			views, err := a.engine().GetSubmissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), views)
		},
	}
}

func newLogsCmd(a *app) *cobra.Command {
	var offset int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print one page of the wizard log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offset < 0 {
				return errors.New("--offset must not be negative")
			}
			entries, err := a.engine().GetLog(cmd.Context(), offset)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "number of newest entries to skip")
	return cmd
}
