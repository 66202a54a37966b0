package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/cli/internal/version"
	"github.com/satishbabariya/godal/config"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/migrate/planner"
	"github.com/satishbabariya/godal/runtime/client"
	"github.com/satishbabariya/godal/schema"
)

// globalOptions are the persistent flags every command shares.
type globalOptions struct {
	configPath string
	uri        string
	schemaPath string
	verbose    bool
	jsonLog    bool
}

// Execute is the main entry point for the CLI
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "godal",
		Short: "Plan and apply schema changes across SQL backends",
		Long: `godal keeps a live database in line with a declared schema.

The schema is a YAML document of tables and fields. Connection settings come
from a config file, GODAL_* environment variables or a .env file.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			debug.Init(debug.Options{Level: level, JSON: opts.jsonLog, Writer: cmd.ErrOrStderr()})
		},
	}
	root.SetVersionTemplate(version.Get().String() + "\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./godal.yaml or ~/.config/godal)")
	flags.StringVar(&opts.uri, "uri", "", "database URI, overrides the config")
	flags.StringVarP(&opts.schemaPath, "schema", "s", "schema.yaml", "schema file")
	flags.BoolVar(&opts.verbose, "verbose", false, "log debug output")
	flags.BoolVar(&opts.jsonLog, "json-log", false, "log as JSON")

	root.AddCommand(
		newPlanCommand(opts),
		newApplyCommand(opts),
		newInspectCommand(opts),
		newCompileCommand(opts),
		newHistoryCommand(opts),
		newInitCommand(opts),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads the config and applies the --uri override.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.uri != "" {
		cfg.URI = o.uri
	}
	// Commands plan and apply explicitly.
	cfg.Migrate = config.MigrateOff
	return cfg, cfg.Validate()
}

// loadSchema reads the schema file.
func (o *globalOptions) loadSchema() (*schema.Registry, error) {
	f, err := config.Fs.Open(o.schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	reg, err := schema.LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.schemaPath, err)
	}
	return reg, nil
}

// openClient loads the config and schema and opens a client on them.
func (o *globalOptions) openClient() (*client.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	reg, err := o.loadSchema()
	if err != nil {
		return nil, err
	}
	return client.Open(cfg, reg)
}

// planFlags are shared by plan and apply.
type planFlags struct {
	destructive bool
	dropUnknown bool
	renames     []string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.destructive, "destructive", false, "schedule drops and other destructive changes")
	cmd.Flags().BoolVar(&f.dropUnknown, "drop-unknown", false, "drop live tables the schema does not declare")
	cmd.Flags().StringArrayVar(&f.renames, "rename", nil, "treat a live column as renamed: table.old=new")
}

func (f *planFlags) options() (planner.Options, error) {
	opts := planner.Options{DropUnknownTables: f.dropUnknown}
	if f.destructive {
		opts.Mode = planner.Destructive
	}
	renames, err := parseRenames(f.renames)
	if err != nil {
		return opts, err
	}
	opts.Renames = renames
	return opts, nil
}

// parseRenames turns "table.old=new" hints into planner rename maps.
func parseRenames(hints []string) (map[string]map[string]string, error) {
	if len(hints) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]string)
	for _, h := range hints {
		from, to, ok := strings.Cut(h, "=")
		table, column, ok2 := strings.Cut(from, ".")
		if !ok || !ok2 || table == "" || column == "" || to == "" {
			return nil, fmt.Errorf("invalid rename %q: want table.old=new", h)
		}
		if out[table] == nil {
			out[table] = make(map[string]string)
		}
		out[table][column] = to
	}
	return out, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ui.New(cmd.OutOrStdout()).Info("%s", version.Get().FullString())
		},
	}
}
