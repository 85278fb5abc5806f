package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"shrinkbot/internal/config"
	"shrinkbot/internal/deps"
	"shrinkbot/internal/fileutil"
)

const telegramAPIBase = "https://api.telegram.org"

const apiCheckTimeout = 5 * time.Second

// Free-space policy at the staging root: below the floor the check fails,
// below the comfortable margin it passes with a warning.
const (
	diskSpaceFloor  = 256 * 1024 * 1024
	diskSpaceMargin = 1024 * 1024 * 1024
)

// CheckFFmpeg verifies the encoder binary is on PATH.
func CheckFFmpeg() Result {
	const name = "FFmpeg"
	statuses := deps.CheckBinaries(deps.Requirements())
	for _, status := range statuses {
		if status.Name != name {
			continue
		}
		if !status.Available {
			return Result{Name: name, Detail: status.Detail}
		}
		return Result{Name: name, Passed: true, Detail: status.Command}
	}
	return Result{Name: name, Detail: "requirement missing"}
}

// CheckToken verifies the bot token resolves through the documented order
// without revealing it.
func CheckToken(cfg *config.Config) Result {
	const name = "Bot token"
	if _, err := cfg.ResolveToken(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "resolved"}
}

// CheckStagingDir verifies the staging root exists and is fully accessible.
func CheckStagingDir(path string) Result {
	const name = "Staging directory"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s does not exist", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the staging root has room for a download plus an
// encode.
func CheckDiskSpace(path string) Result {
	const name = "Disk space"
	usage, err := disk.Usage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (usage: %v)", path, err)}
	}
	free := fileutil.FormatMegabytes(int64(usage.Free)) //nolint:gosec
	switch {
	case usage.Free < diskSpaceFloor:
		return Result{Name: name, Detail: fmt.Sprintf("only %s free at %s", free, path)}
	case usage.Free < diskSpaceMargin:
		return Result{
			Name:    name,
			Passed:  true,
			Warning: true,
			Detail:  fmt.Sprintf("%s free at %s; large videos may not fit", free, path),
		}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", free)}
	}
}

// CheckTelegram verifies the Bot API accepts the configured token via getMe.
// The check is skipped when no token resolves so doctor stays usable on an
// unconfigured machine; baseURL overrides the production endpoint in tests.
func CheckTelegram(ctx context.Context, cfg *config.Config, baseURL string) Result {
	const name = "Telegram API"
	token, err := cfg.ResolveToken()
	if err != nil {
		return Result{Name: name, Passed: true, Warning: true, Detail: "skipped (no token)"}
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = telegramAPIBase
	}

	checkCtx, cancel := context.WithTimeout(ctx, apiCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, fmt.Sprintf("%s/bot%s/getMe", base, token), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("build request: %v", err)}
	}
	client := &http.Client{Timeout: apiCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "reachable"}
	case http.StatusUnauthorized, http.StatusNotFound:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "getMe timed out (Bot API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "getMe timed out (Bot API unreachable)"
	}
	return err.Error()
}
