package preflight

import (
	"context"

	"shrinkbot/internal/config"
)

// Result reports the outcome of a single preflight check. Warning marks a
// check that passed but deserves operator attention.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// RunAll executes every preflight check in a fixed order. apiBaseURL
// overrides the production Bot API endpoint; pass "" outside tests.
func RunAll(ctx context.Context, cfg *config.Config, apiBaseURL string) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckFFmpeg(),
		CheckToken(cfg),
		CheckStagingDir(cfg.Paths.StagingDir),
		CheckDiskSpace(cfg.Paths.StagingDir),
		CheckTelegram(ctx, cfg, apiBaseURL),
	}
}

// RequiredFailures filters results down to hard failures; warnings do not
// count.
func RequiredFailures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
