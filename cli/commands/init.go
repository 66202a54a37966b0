package commands

import (
	"errors"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/godal/cli/internal/ui"
	"github.com/satishbabariya/godal/config"
)

const starterSchema = `tables:
  - name: person
    fields:
      - name: nickname
        type: string(64)
        notnull: true
        unique: true
      - name: created_at
        type: datetime
        default_expr: CURRENT_TIMESTAMP
`

func newInitCommand(opts *globalOptions) *cobra.Command {
	var (
		migrate        string
		poolSize       int
		nonInteractive bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and a starter schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ui.New(cmd.OutOrStdout())
			cfg := config.Default()
			cfg.URI = opts.uri
			cfg.Migrate = config.Mode(migrate)
			cfg.PoolSize = poolSize

			if !nonInteractive {
				out.Header("godal init", "configure a database connection")
				var err error
				if cfg.URI, err = ui.Ask("Database URI", cfg.URI); err != nil {
					return err
				}
				modes := []string{string(config.MigrateOff), string(config.MigrateAdditive), string(config.MigrateDestructive)}
				mode, err := ui.Choose("Reconcile the schema on first use", modes, string(cfg.Migrate))
				if err != nil {
					return err
				}
				cfg.Migrate = config.Mode(mode)
				size, err := ui.Ask("Pool size", strconv.Itoa(cfg.PoolSize))
				if err != nil {
					return err
				}
				if cfg.PoolSize, err = strconv.Atoi(size); err != nil {
					return err
				}
			}

			path := opts.configPath
			if path == "" {
				path = "godal.yaml"
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}
			out.Success("wrote %s", path)

			if _, err := config.Fs.Stat(opts.schemaPath); errors.Is(err, os.ErrNotExist) {
				if err := afero.WriteFile(config.Fs, opts.schemaPath, []byte(starterSchema), 0o644); err != nil {
					return err
				}
				out.Success("wrote %s", opts.schemaPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&migrate, "migrate", string(config.MigrateOff), "schema reconciliation on first use: off, additive or destructive")
	cmd.Flags().IntVar(&poolSize, "pool-size", config.Default().PoolSize, "connection pool size")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "take every value from flags")
	return cmd
}
