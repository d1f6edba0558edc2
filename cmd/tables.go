package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"db-wipe/internal/client"
)

var (
	listSchemas   []string
	listViews     bool
	listQualified bool
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables (or views) a wipe would consider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var opts []client.Option
		if len(listSchemas) > 0 {
			opts = append(opts, client.WithSchemas(listSchemas...))
		}
		if listQualified {
			opts = append(opts, client.WithQualifiedNames())
		}

		list := s.client.ListTables
		if listViews {
			list = s.client.ListViews
		}
		names, err := list(ctx, opts...)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	flags := tablesCmd.Flags()
	flags.StringSliceVarP(&listSchemas, "schema", "s", nil, "schemas to list (default is the connection's schemas)")
	flags.BoolVar(&listViews, "views", false, "list views instead of tables")
	flags.BoolVarP(&listQualified, "qualified", "q", false, "print schema.name")
	RootCmd.AddCommand(tablesCmd)
}
