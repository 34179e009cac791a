package commands

import (
	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/config"
	"go-disaster-id-scan/internal/logger"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

// Execute runs the idscan command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "idscan",
		Short:         "Read ID documents and register disaster victims",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}

			// The server logs JSON for collectors; everything else is interactive.
			format := "text"
			if cmd.Name() == "serve" {
				format = "json"
			}
			logger.Configure(loaded.LogLevel, format)

			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(serveCmd(), parseCmd(), scanCmd(), exportCmd(), importCmd())
	return root
}
