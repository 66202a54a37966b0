package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/cli/internal/watch"
)

func newPlanCommand(opts *globalOptions) *cobra.Command {
	var (
		flags   planFlags
		showSQL bool
		report  bool
		watched bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes that would bring the database in line with the schema",
		Long: `Compare the schema file with the live database and print the plan.

Destructive changes are listed as pending unless --destructive is given.
Nothing is applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ui.New(cmd.OutOrStdout())
			run := func(ctx context.Context) error {
				return runPlan(ctx, opts, &flags, out, showSQL, report)
			}
			if !watched {
				return run(cmd.Context())
			}
			w, err := watch.New(opts.schemaPath, watch.DefaultDebounce, func(ctx context.Context) error {
				out.Header("godal plan", "watching "+opts.schemaPath)
				if err := run(ctx); err != nil {
					out.Error("%v", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the statements of each step")
	cmd.Flags().BoolVar(&report, "report", false, "render the plan as a markdown report")
	cmd.Flags().BoolVarP(&watched, "watch", "w", false, "replan whenever the schema file changes")
	return cmd
}

func runPlan(ctx context.Context, opts *globalOptions, flags *planFlags, out *ui.Printer, showSQL, report bool) error {
	planOpts, err := flags.options()
	if err != nil {
		return err
	}
	c, err := opts.openClient()
	if err != nil {
		return err
	}
	defer c.Close()

	p, err := c.Plan(ctx, planOpts)
	if err != nil {
		return err
	}
	if report {
		return out.Markdown(ui.PlanReport(c.Dialect().Name(), p))
	}
	out.Plan(p, showSQL)
	return nil
}
