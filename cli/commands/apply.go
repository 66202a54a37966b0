package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/runtime/client"
)

var errAborted = errors.New("aborted")

func newApplyCommand(opts *globalOptions) *cobra.Command {
	var (
		flags            planFlags
		yes              bool
		nonTransactional bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the planned changes to the database",
		Long: `Plan and apply the changes that bring the database in line with the schema.

With --destructive the plan may drop tables, columns, indexes and
constraints; you are asked to confirm unless --yes is given. Each applied
plan is recorded in the migration history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := ui.New(cmd.OutOrStdout())
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
			out.Plan(p, false)
			if len(p.Steps) == 0 {
				return nil
			}

			destructive := 0
			for _, step := range p.Steps {
				if step.Destructive {
					destructive++
				}
			}
			if destructive > 0 && !yes {
				ok, err := ui.Confirm("Apply destructive changes? Data will be lost.")
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}

			res, err := c.Migrate(ctx, client.MigrateOptions{
				Options:               planOpts,
				AllowNonTransactional: nonTransactional,
			})
			if err != nil {
				return err
			}
			if len(res.Applied) == 0 {
				out.Success("nothing to apply")
				return nil
			}
			if res.Record != nil {
				out.Success("applied %d step(s) as migration %s", len(res.Applied), res.Record.ID)
			} else {
				out.Success("applied %d step(s)", len(res.Applied))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before destructive changes")
	cmd.Flags().BoolVar(&nonTransactional, "allow-non-transactional", false, "apply on backends without transactional DDL")
	return cmd
}
