package commands

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/container"
	"go-disaster-id-scan/internal/logger"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Restore registrants from an autosave snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open snapshot: %w", err)
			}
			defer f.Close()

			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Service().Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"snapshot":    args[0],
				"registrants": n,
			}).Info("Snapshot imported")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d registrants\n", n)
			return nil
		},
	}
}
