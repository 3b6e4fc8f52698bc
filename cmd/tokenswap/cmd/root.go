package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-tokenswap/internal/common"
	"github.com/lugondev/go-tokenswap/internal/config"
)

var (
	cfgFile  string
	logLevel string

	appConfig *config.Config
	logger    *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tokenswap",
	Short: "Token swap CLI - encode, decode and price AMM instructions",
	Long: `tokenswap is a CLI for the token-swap pricing and wire-encoding core.

It provides commands for:
- Encoding and decoding the four swap instructions
- Quoting trades against given reserves
- Simulating a pool lifecycle against an in-memory ledger
- Writing a default configuration file`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.tokenswap.yaml or $HOME/.tokenswap.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l, err := common.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	appConfig, logger = cfg, l
	slog.SetDefault(l)
	return nil
}
