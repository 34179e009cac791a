package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/container"
	"go-disaster-id-scan/internal/logger"
)

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the registrant export to the configured sink or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if out == "" {
				if err := c.Service().Export(cmd.Context()); err != nil {
					return err
				}
				logger.WithField("sink", cfg.ExportSink).Info("Export written")
				return nil
			}

			if out == "-" {
				return c.Service().WriteCSV(cmd.Context(), cmd.OutOrStdout())
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := c.Service().WriteCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the CSV to this file instead of the sink (- for stdout)")
	return cmd
}
