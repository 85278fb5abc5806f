package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shrinkbot/internal/preflight"
)

func newDoctorCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run readiness checks and report the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg, "")
			colorize := shouldColorize(os.Stdout)

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.Name,
					renderCheckStatus(result, colorize),
					result.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				nil,
			))

			if failed := preflight.RequiredFailures(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}

func renderCheckStatus(result preflight.Result, colorize bool) string {
	switch {
	case !result.Passed:
		return colorText("FAIL", ansiRed, colorize)
	case result.Warning:
		return colorText("WARN", ansiYellow, colorize)
	default:
		return colorText("OK", ansiGreen, colorize)
	}
}
