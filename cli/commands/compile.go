package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/migrate/introspect"
	"github.com/satishbabariya/godal/migrate/planner"
	"github.com/satishbabariya/godal/query/sqlgen"
)

// emptyDatabase introspects as a database with no tables, so planning
// against it yields the full creation script.
type emptyDatabase struct{}

func (emptyDatabase) ListTables(context.Context) ([]string, error) { return nil, nil }

func (emptyDatabase) DescribeTable(_ context.Context, name string) (*introspect.TableDescription, error) {
	return nil, fmt.Errorf("table %s does not exist", name)
}

func newCompileCommand(opts *globalOptions) *cobra.Command {
	var (
		dialect       string
		serverVersion string
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the DDL that creates the schema on an empty database",
		Long: `Render the statements that create every table of the schema, in
dependency order, for one dialect. No database is contacted.

Dialects: ` + strings.Join(sqlgen.Names(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadSchema()
			if err != nil {
				return err
			}
			d, err := sqlgen.New(dialect, sqlgen.Options{ServerVersion: serverVersion})
			if err != nil {
				return err
			}
			p, err := planner.New(d, emptyDatabase{}).Plan(cmd.Context(), reg, planner.Options{})
			if err != nil {
				return err
			}
			out := ui.New(cmd.OutOrStdout())
			for _, stmt := range p.SQL() {
				out.Info("%s;", stmt)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "postgres", "target dialect")
	cmd.Flags().StringVar(&serverVersion, "server-version", "", "target server version, e.g. 8.0.13")
	return cmd
}
