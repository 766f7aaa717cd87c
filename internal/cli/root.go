package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kolpmikel/FinanceApp/internal/config"
	"github.com/kolpmikel/FinanceApp/internal/remote"
)

// RootOptions holds global flags and the configuration resolved from them.
type RootOptions struct {
	ConfigFile string
	EnvFile    string

	// Viper holds flag bindings; Config is filled before any RunE.
	Viper  *viper.Viper
	Config config.Config
}

// Formatter returns an output formatter for cmd using the resolved config.
func (o *RootOptions) Formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Config.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Config.Verbose,
	}
}

// NewRootCommand creates the root command for the finance CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Offline-first personal finance client",
		Long: `Track transactions against the finance API. Every change is written to the
server first and mirrored into a local SQLite store; changes the store could
not take are queued and replayed on the next sync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.EnvFile); err != nil {
				return WrapExitError(ExitCommandError, "failed to load env file", err)
			}
			cfg, err := config.Load(opts.Viper, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file exported before reading FINANCE_* variables")
	flags.String("db", config.DefaultDB, "path to the local SQLite database")
	flags.String("api-url", remote.DefaultBaseURL, "finance API base url")
	flags.String("token", "", "API bearer token")
	flags.Duration("timeout", config.DefaultTimeout, "per-request timeout")
	flags.String("format", config.DefaultFormat, "output format (json|text)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")

	bindings := map[string]string{
		config.KeyDB:      "db",
		config.KeyAPIURL:  "api-url",
		config.KeyToken:   "token",
		config.KeyTimeout: "timeout",
		config.KeyFormat:  "format",
		config.KeyVerbose: "verbose",
		config.KeyLogFile: "log-file",
	}
	for key, flag := range bindings {
		_ = opts.Viper.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(NewTxCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewDaemonCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
