package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/mrz"
)

func parseCmd() *cobra.Command {
	var (
		strict bool
		pivot  int
	)

	cmd := &cobra.Command{
		Use:   "parse [MRZ line...]",
		Short: "Decode MRZ text given as arguments or on stdin",
		Long: "Decode MRZ text given as arguments (one argument per line) or, " +
			"when no arguments are given, read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, "\n")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}

			opts := mrz.DefaultOptions().WithCenturyPivot(mrz.PivotRelativeTo(time.Now(), cfg.MaxAgeYears))
			if cmd.Flags().Changed("pivot") {
				if pivot < 0 || pivot > 99 {
					return fmt.Errorf("--pivot must be between 0 and 99 (got %d)", pivot)
				}
				opts = opts.WithCenturyPivot(mrz.FixedPivot(pivot))
			}
			if strict || cfg.StrictChecksums {
				opts = opts.WithStrictChecksums()
			}

			id, err := mrz.Parse(text, opts)
			if id != nil {
				if encErr := writeJSON(cmd.OutOrStdout(), id); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when check digits do not match")
	cmd.Flags().IntVar(&pivot, "pivot", 0, "fixed century pivot for birth years (yy below pivot is 20yy)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
