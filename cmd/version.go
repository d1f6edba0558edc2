package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "server-version",
	Short: "Print the database server version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.client.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
