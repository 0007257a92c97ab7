// Package gitio retrieves historical coverage reports from git.
package gitio

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ShowFile returns the content of path as of the given commit or ref, using
// `git show ref:path` in projectRoot.
func ShowFile(projectRoot, ref, path string) ([]byte, error) {
	spec := fmt.Sprintf("%s:%s", ref, filepath.ToSlash(path))
	cmd := exec.Command("git", "show", spec)
	cmd.Dir = projectRoot

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("could not retrieve %s from commit %s: %s",
				path, ref, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git show %s: %w", spec, err)
	}
	return out, nil
}

// Head returns the current HEAD commit hash, or an empty string when
// projectRoot is not a git repository.
func Head(projectRoot string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = projectRoot
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
