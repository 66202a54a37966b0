package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/migrate/introspect"
)

func newInspectCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Describe the tables of the live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ui.New(cmd.OutOrStdout())
			c, err := opts.openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			tables, err := c.Introspect(cmd.Context())
			if err != nil {
				return err
			}
			if len(tables) == 0 {
				out.Info("no tables")
				return nil
			}
			for _, t := range tables {
				out.Info("%s", ui.TitleStyle.Render(t.Name))
				if err := out.Table([]string{"Column", "Type", "Null", "Default", "Key"}, columnRows(t)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func columnRows(t *introspect.TableDescription) [][]string {
	rows := make([][]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		null := "NO"
		if col.Nullable {
			null = "YES"
		}
		def := ""
		if col.Default != nil {
			def = *col.Default
		}
		var key []string
		if col.PrimaryKey {
			key = append(key, "PK")
		}
		if col.AutoIncrement {
			key = append(key, "AUTO")
		}
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) == 1 && fk.Columns[0] == col.Name {
				key = append(key, "FK "+fk.RefTable)
			}
		}
		rows = append(rows, []string{col.Name, col.Type, null, def, strings.Join(key, " ")})
	}
	return rows
}
