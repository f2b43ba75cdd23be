package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlssafe/internal/deps"
	"hlssafe/internal/encoding"
	"hlssafe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and list every place ffmpeg is looked for",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			results := preflight.RunAll(cfg)
			printSection(stdout, "Checks", colorize)
			for _, result := range results {
				fmt.Fprintln(stdout, renderStatusLine(result.Name, statusKindFor(result.Passed), result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			report := deps.CheckEncoder(encoding.NewResolver(cfg.Encoder.Candidates, cfg.Encoder.Command))
			printSection(stdout, "FFmpeg Lookup", colorize)
			fmt.Fprintln(stdout, renderTable(
				[]string{"Order", "Location", "Present", "Selected"},
				encoderRows(report),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("doctor found %d problem(s)", len(failed))
			}
			return nil
		},
	}
}

func encoderRows(report deps.EncoderReport) [][]string {
	rows := make([][]string, 0, len(report.Candidates)+1)
	for i, candidate := range report.Candidates {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			candidate.Command,
			yesNo(candidate.Available),
			selectedMark(report.Selected == candidate.Command),
		})
	}
	if report.Fallback.Command != "" {
		rows = append(rows, []string{
			fmt.Sprint(len(report.Candidates) + 1),
			report.Fallback.Command + " (PATH)",
			yesNo(report.Fallback.Available),
			selectedMark(report.Selected == report.Fallback.Command),
		})
	}
	return rows
}

func selectedMark(selected bool) string {
	if selected {
		return "*"
	}
	return ""
}
