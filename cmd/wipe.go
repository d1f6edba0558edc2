package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"db-wipe/internal/client"
	"db-wipe/internal/errs"
	"db-wipe/internal/schema"
)

var (
	wipeSchemas []string
	wipeIgnore  []string
	wipeViews   bool
	wipeTypes   bool
	dryRun      bool
	noProgress  bool
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Drop every table (and optionally views and types) of the selected schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bar := &progressBar{}
		var opts []client.ClientOption
		if !noProgress && !dryRun {
			opts = append(opts, client.WithProgress(bar.update))
		}

		s, err := openSession(ctx, opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		var callOpts []client.Option
		if len(wipeSchemas) > 0 {
			callOpts = append(callOpts, client.WithSchemas(wipeSchemas...))
		}
		if cmd.Flags().Changed("ignore") {
			callOpts = append(callOpts, client.WithIgnore(wipeIgnore...))
		}

		// Views depend on tables and go first.
		kinds := []schema.ObjectKind{schema.Tables}
		if wipeViews {
			kinds = []schema.ObjectKind{schema.Views, schema.Tables}
		}
		if wipeTypes {
			kinds = append(kinds, schema.Types)
		}

		if dryRun {
			return printPlans(ctx, s.client, kinds, callOpts)
		}

		start := time.Now()
		total := 0
		for _, kind := range kinds {
			bar.label = string(kind)
			res, err := drop(ctx, s.client, kind, callOpts)
			bar.stop()
			if err != nil {
				if kind == schema.Types && errs.IsUnsupportedOperation(err) {
					log.Warn().Err(err).Msg("skipping types")
					continue
				}
				return err
			}
			total += res.Count()
			fmt.Printf("Dropped %d %s", res.Count(), kind)
			if len(res.Ignored) > 0 {
				fmt.Printf(" (kept %s)", strings.Join(res.Ignored, ", "))
			}
			fmt.Println()
		}

		fmt.Printf("Done: %d objects dropped in %v\n", total, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	flags := wipeCmd.Flags()
	flags.StringSliceVarP(&wipeSchemas, "schema", "s", nil, "schemas to wipe (default is the connection's schemas)")
	flags.StringSliceVarP(&wipeIgnore, "ignore", "i", nil, "objects to keep, by name or schema.name (replaces the configured list)")
	flags.BoolVar(&wipeViews, "views", false, "drop views as well")
	flags.BoolVar(&wipeTypes, "types", false, "drop user-defined types as well (postgres)")
	flags.BoolVar(&dryRun, "dry-run", false, "print the statements without running them")
	flags.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	RootCmd.AddCommand(wipeCmd)
}

func drop(ctx context.Context, c *client.Client, kind schema.ObjectKind, opts []client.Option) (*client.Result, error) {
	switch kind {
	case schema.Views:
		return c.DropAllViews(ctx, opts...)
	case schema.Types:
		return c.DropAllTypes(ctx, opts...)
	default:
		return c.DropAllTables(ctx, opts...)
	}
}

func printPlans(ctx context.Context, c *client.Client, kinds []schema.ObjectKind, opts []client.Option) error {
	fmt.Println("Dry run: nothing will be dropped.")
	for _, kind := range kinds {
		plan, err := c.Plan(ctx, kind, opts...)
		if err != nil {
			if kind == schema.Types && errs.IsUnsupportedOperation(err) {
				continue
			}
			return err
		}

		fmt.Printf("\n%s in %s: %d to drop, %d kept\n", kind, strings.Join(plan.Schemas, ", "), len(plan.Targets), len(plan.Ignored))
		for _, stmt := range plan.Setup {
			fmt.Printf("  %s;\n", stmt)
		}
		for i, stmt := range plan.Statements {
			fmt.Printf("  [%02d] %s;\n", i+1, stmt.SQL)
		}
		for _, stmt := range plan.Teardown {
			fmt.Printf("  %s;\n", stmt)
		}
	}
	return nil
}

// progressBar starts a fresh bar for each operation on its first statement.
type progressBar struct {
	label    string
	progress *uiprogress.Progress
	bar      *uiprogress.Bar
}

func (b *progressBar) update(done, total int) {
	if b.bar == nil {
		b.progress = uiprogress.New()
		b.progress.Start()
		b.bar = b.progress.AddBar(total).AppendCompleted().PrependElapsed()
		label := b.label
		b.bar.PrependFunc(func(*uiprogress.Bar) string {
			return "Dropping " + label + ": "
		})
	}
	b.bar.Set(done)
}

func (b *progressBar) stop() {
	if b.progress != nil {
		b.progress.Stop()
	}
	b.progress, b.bar = nil, nil
}
