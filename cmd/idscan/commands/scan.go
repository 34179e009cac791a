package commands

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/container"
	"go-disaster-id-scan/internal/logger"
	"go-disaster-id-scan/internal/scanner"
)

type scanOutput struct {
	File     string            `json:"file"`
	Result   *scanner.Result   `json:"result,omitempty"`
	Accuracy *scanner.Accuracy `json:"accuracy,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func scanCmd() *cobra.Command {
	var expected string

	cmd := &cobra.Command{
		Use:   "scan <frame>...",
		Short: "Run OCR over captured frames and decode their MRZ",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			frames := make([][]byte, len(args))
			for i, path := range args {
				if frames[i], err = os.ReadFile(path); err != nil {
					return fmt.Errorf("failed to read frame: %w", err)
				}
			}

			failed := 0
			for _, br := range c.Scanner().ScanBatch(cmd.Context(), c.Pool(), frames) {
				out := scanOutput{File: args[br.Index], Result: br.Result}
				if br.Err != nil {
					failed++
					out.Error = br.Err.Error()
					logger.WithError(br.Err).WithField("file", out.File).Warn("No MRZ decoded")
				} else {
					logger.WithFields(logrus.Fields{
						"file":            out.File,
						"strategy":        br.Result.Strategy,
						"checksums_valid": br.Result.Identity.ChecksumsValid(),
					}).Debug("MRZ decoded")
					if expected != "" {
						accuracy := scanner.MeasureAccuracy(expected, br.Result.Candidate)
						out.Accuracy = &accuracy
					}
				}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d frames could not be decoded", failed, len(frames))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&expected, "expected", "", "known MRZ text to measure OCR accuracy against")
	return cmd
}
