package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shrinkbot/internal/fileutil"
	"shrinkbot/internal/logging"
	"shrinkbot/internal/workspace"
)

func newStagingCommand(cctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean job workspaces",
	}

	stagingCmd.AddCommand(newStagingListCommand(cctx))
	stagingCmd.AddCommand(newStagingCleanCommand(cctx))

	return stagingCmd
}

func newStagingListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List job workspaces under the staging root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dirs, err := workspace.ListDirectories(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list workspaces: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No job workspaces found.")
				return nil
			}

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{
					dir.Name,
					fileutil.FormatMegabytes(dir.Size),
					formatAge(time.Since(dir.ModTime)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Workspace", "Size", "Age"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newStagingCleanCommand(cctx *commandContext) *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale job workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			hours := maxAgeHours
			if hours <= 0 {
				hours = cfg.Workflow.StaleWorkspaceHours
			}
			maxAge := time.Duration(hours) * time.Hour

			result := workspace.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logging.NewNop())
			out := cmd.OutOrStdout()
			for _, removed := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", removed)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", failure.Path, failure.Error)
			}
			fmt.Fprintf(out, "Removed %d stale workspace(s) older than %s.\n", len(result.Removed), maxAge)
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspace(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Override the configured stale workspace age")
	return cmd
}

func formatAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
