package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var truncateCascade bool

var truncateCmd = &cobra.Command{
	Use:   "truncate TABLE...",
	Short: "Empty tables, keeping their structure",
	Long: `Empty tables, keeping their structure.

Unquoted names are folded the way the server folds them: upper case on
Oracle, lower case on Postgres. Quote a name to keep its case, for example
'"MixedCase"' or 'hr."Audit"'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, table := range args {
			res, err := s.client.Truncate(ctx, table, truncateCascade)
			if err != nil {
				return err
			}
			fmt.Printf("Truncated %s in %v\n", res.Objects[0], res.Duration)
		}
		return nil
	},
}

func init() {
	truncateCmd.Flags().BoolVar(&truncateCascade, "cascade", false, "also truncate referencing tables (postgres, oracle)")
	RootCmd.AddCommand(truncateCmd)
}
