package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the migrations applied to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ui.New(cmd.OutOrStdout())
			c, err := opts.openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			records, err := c.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				out.Info("no migrations applied")
				return nil
			}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.ID,
					r.AppliedAt.UTC().Format(time.RFC3339),
					r.Mode,
					strconv.Itoa(len(r.Statements)),
					r.ExecutionTime.Round(time.Millisecond).String(),
					r.Checksum,
				}
			}
			return out.Table([]string{"ID", "Applied", "Mode", "Statements", "Took", "Checksum"}, rows)
		},
	}
}
