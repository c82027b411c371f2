// Package locate decides where a library's headers and (optionally) its
// prebuilt artifacts live for the current build.
package locate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/library"
)

// Location is the outcome of resolution. IncludeDir is always set, since
// bindings can be generated from vendored headers alone. Root is empty
// until an override path or a source build produces a directory holding
// include/ and lib/.
type Location struct {
	IncludeDir string
	Root       string
}

// Resolved reports whether a directory root is available for linking.
func (l Location) Resolved() bool { return l.Root != "" }

// LibDir returns the link search path under the root, or "" when no root
// is resolved.
func (l Location) LibDir() string {
	if l.Root == "" {
		return ""
	}
	return filepath.Join(l.Root, "lib")
}

// Resolve produces the Location for one library. The override directory
// takes strict precedence; otherwise the include path falls back to the
// vendored headers and the root stays unresolved.
func Resolve(spec *library.Spec, cfg *config.Build) (Location, error) {
	if root := cfg.Overrides[spec.Name]; root != "" {
		loc := Location{
			IncludeDir: filepath.Join(root, "include"),
			Root:       root,
		}
		if _, err := os.Stat(root); err != nil {
			return loc, fmt.Errorf("%s does not point to a valid directory: %s", spec.EnvVar, root)
		}
		return loc, nil
	}

	loc := Location{IncludeDir: filepath.Join(cfg.VendorDir, filepath.FromSlash(spec.VendoredInclude))}
	if _, err := os.Stat(loc.IncludeDir); err != nil {
		return loc, fmt.Errorf("no headers for %s: set %s or vendor them under %s",
			spec.Name, spec.EnvVar, loc.IncludeDir)
	}
	return loc, nil
}

// Candidate returns the working-directory root used when building a
// library from source, and whether it is already populated from a prior
// invocation. A populated candidate is reused verbatim: no re-fetch, no
// re-compile.
func Candidate(cfg *config.Build, spec *library.Spec) (root string, populated bool) {
	root = filepath.Join(cfg.Workspace, "src", spec.Name)
	_, err := os.Stat(filepath.Join(root, spec.Name))
	return root, err == nil
}
