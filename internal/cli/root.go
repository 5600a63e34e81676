package cli

import (
	"github.com/spf13/cobra"

	"fixlet/pkg/config"
	"fixlet/pkg/logger"
)

var (
	cfg *config.Config

	flagConfig   string
	flagServer   string
	flagWS       string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fixlet",
	Short: "Remote file repair client",
	Long:  "Uploads a damaged file, submits a repair job and follows it to completion.",
	// errors come back as structured records via main, not cobra's printer
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if flagConfig != "" {
			cfg, err = config.LoadFromFile(flagConfig)
		} else {
			cfg, _, err = config.LoadConfig()
		}
		if err != nil {
			return err
		}

		if flagServer != "" {
			cfg.Server.BaseURL = flagServer
		}
		if flagWS != "" {
			cfg.Server.WSURL = flagWS
		}
		if flagLogLevel != "" {
			cfg.Logging.Level = flagLogLevel
		}

		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)

		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "Control-plane base URL")
	rootCmd.PersistentFlags().StringVar(&flagWS, "ws", "", "Progress channel base URL")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Diagnostic level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(newRepairCmd())
	rootCmd.AddCommand(newQuotaCmd())
}
