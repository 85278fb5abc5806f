// Package workspace manages per-job scratch directories under the
// staging root. Each job gets an isolated directory that holds the
// downloaded source and the transcoded output until delivery finishes.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"shrinkbot/internal/services"
)

const (
	dirPrefix    = "job-"
	outputPrefix = "compressed_"
)

// Workspace is the scratch directory for a single job.
type Workspace struct {
	dir string
}

// Acquire creates the scratch directory for jobID under root.
func Acquire(root, jobID string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "acquire", "staging directory not configured", nil)
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, services.Wrap(services.ErrValidation, "workspace", "acquire", "job identifier required", nil)
	}
	dir := filepath.Join(root, dirPrefix+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"workspace",
			"create directory",
			"Failed to create job workspace; check staging_dir permissions",
			err,
		)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// InputPath returns where the downloaded source named name is stored.
func (w *Workspace) InputPath(name string) string {
	return filepath.Join(w.dir, name)
}

// OutputPath returns the transcode destination for the source named name.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.dir, outputPrefix+name)
}

// Remove deletes the workspace and everything in it. Removing a
// workspace that is already gone is not an error.
func (w *Workspace) Remove() error {
	if w == nil || strings.TrimSpace(w.dir) == "" {
		return nil
	}
	return os.RemoveAll(w.dir)
}
