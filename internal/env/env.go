// Package env is the single boundary through which starsys reads the
// process environment. Everything downstream works from the Environ
// snapshot taken here.
package env

import (
	"os"
	"path/filepath"
)

// WorkspaceEnv overrides the default workspace location when set.
const WorkspaceEnv = "STARSYS_WORKSPACE"

// Environ is a read-only snapshot of the build-relevant environment.
type Environ struct {
	Workspace string            // value of STARSYS_WORKSPACE, may be empty
	CC        string            // value of CC, may be empty
	Overrides map[string]string // override variable name -> directory, set vars only
}

// Snapshot reads the process environment once. overrideVars lists the
// per-library override variables to capture (e.g. CSPICE_DIR).
func Snapshot(overrideVars []string) Environ {
	e := Environ{
		Workspace: os.Getenv(WorkspaceEnv),
		CC:        os.Getenv("CC"),
		Overrides: make(map[string]string),
	}
	for _, name := range overrideVars {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			e.Overrides[name] = v
		}
	}
	return e
}

// WorkspaceDir returns the directory where starsys keeps fetched sources,
// build outputs and published metadata, creating it if needed.
func WorkspaceDir(e Environ) (string, error) {
	dir := e.Workspace
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(userCacheDir, ".starsys")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
