// Package metadata is the registry through which one library integration
// publishes its resolved include and link facts for downstream
// integrations. Entries are written once per build invocation and read
// by name; the two sides never reference each other directly.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Info is the published build metadata for one library.
type Info struct {
	Name       string    `json:"name"`
	IncludeDir string    `json:"include_dir"`
	LibDir     string    `json:"lib_dir"`
	LibName    string    `json:"lib_name"`
	LinkArgs   []string  `json:"link_args,omitempty"`
	Published  time.Time `json:"published"`
}

// Registry stores per-library metadata as JSON files under the workspace.
//
//	workspaceDir/
//	  metadata/
//	    cspice.json
//	    calceph.json
//	    ...
type Registry struct {
	dir       string
	published map[string]bool
}

// New returns a registry rooted at workspaceDir.
func New(workspaceDir string) *Registry {
	return &Registry{
		dir:       filepath.Join(workspaceDir, "metadata"),
		published: make(map[string]bool),
	}
}

// Publish writes the metadata entry for info.Name. An entry is write-once
// within a build invocation; a second publish for the same name is a bug
// in the caller. Entries from prior invocations are replaced.
func (r *Registry) Publish(info Info) error {
	if info.Name == "" {
		return fmt.Errorf("metadata: empty library name")
	}
	if r.published[info.Name] {
		return fmt.Errorf("metadata: %s already published in this invocation", info.Name)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	info.Published = time.Now()
	data, err := json.MarshalIndent(&info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path(info.Name), data, 0o644); err != nil {
		return err
	}
	r.published[info.Name] = true
	return nil
}

// Lookup reads the metadata entry published under name. The second result
// reports whether an entry exists.
func (r *Registry) Lookup(name string) (Info, bool, error) {
	data, err := os.ReadFile(r.path(name))
	if os.IsNotExist(err) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, false, fmt.Errorf("metadata: corrupt entry for %s: %w", name, err)
	}
	return info, true, nil
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, name+".json")
}
