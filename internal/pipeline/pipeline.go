// Package pipeline runs the per-library integration stages in their
// fixed order: resolve, generate bindings, optionally fetch and compile
// from source, then publish metadata for downstream integrations.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/astrokit/starsys/internal/bindgen"
	"github.com/astrokit/starsys/internal/compile"
	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/fetch"
	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/internal/locate"
	"github.com/astrokit/starsys/internal/metadata"
)

// Runner executes library integrations against one build configuration.
type Runner struct {
	cfg      *config.Build
	fetcher  *fetch.Fetcher
	compiler *compile.Compiler
	bindgen  *bindgen.Generator
	registry *metadata.Registry
}

// New wires a Runner from its stage implementations. Any nil stage gets
// its default construction.
func New(cfg *config.Build, f *fetch.Fetcher, c *compile.Compiler, g *bindgen.Generator, reg *metadata.Registry) *Runner {
	if f == nil {
		f = fetch.New(nil)
	}
	if c == nil {
		c = compile.New(cfg, "")
	}
	if g == nil {
		g = bindgen.New(filepath.Join(cfg.Workspace, "bindings"))
	}
	if reg == nil {
		reg = metadata.New(cfg.Workspace)
	}
	return &Runner{cfg: cfg, fetcher: f, compiler: c, bindgen: g, registry: reg}
}

// RunAll runs the integrations for names plus every library they depend
// on, in dependency order. The first fatal stage error stops the run.
func (r *Runner) RunAll(ctx context.Context, names []string) error {
	order, err := library.BuildOrder(names)
	if err != nil {
		return err
	}
	for _, spec := range order {
		if err := r.Run(ctx, spec); err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
	}
	return nil
}

// Run executes the integration for one library. A missing library root
// is not fatal: bindings are still generated from the vendored or
// overridden headers, and only the link metadata is withheld.
func (r *Runner) Run(ctx context.Context, spec *library.Spec) error {
	loc, resolveErr := locate.Resolve(spec, r.cfg)
	if resolveErr != nil && loc.Resolved() {
		// An explicit override pointing nowhere is a configuration
		// mistake the user has to fix.
		return resolveErr
	}

	upstream, err := r.upstreamIncludes(spec)
	if err != nil {
		return err
	}

	if err := r.bindgen.Generate(spec, loc.IncludeDir, upstream); err != nil {
		if resolveErr != nil {
			// The generator most likely failed on the headers the
			// resolution step could not find. That message names the
			// override variable, so it is the actionable one.
			return fmt.Errorf("%v: %w", err, resolveErr)
		}
		return err
	}

	if !loc.Resolved() && r.cfg.Mode(spec.Name) == config.FetchAndCompile {
		built, err := r.buildFromSource(ctx, spec, upstream)
		if err != nil {
			return err
		}
		loc = built
	}

	if !loc.Resolved() {
		log.Warnf("no library directory for %s: set %s or enable source builds", spec.Name, spec.EnvVar)
		return nil
	}

	return r.registry.Publish(metadata.Info{
		Name:       spec.Name,
		IncludeDir: filepath.Join(loc.Root, "include"),
		LibDir:     loc.LibDir(),
		LibName:    spec.Name,
		LinkArgs:   compile.RuntimeLinkArgs(r.cfg, spec),
	})
}

// buildFromSource fetches and compiles spec under the workspace. A
// workdir populated by a prior invocation is reused verbatim.
func (r *Runner) buildFromSource(ctx context.Context, spec *library.Spec, upstream []string) (locate.Location, error) {
	root, populated := locate.Candidate(r.cfg, spec)
	if populated {
		log.Infof("reusing %s workdir at %s", spec.Name, root)
		return locate.Location{IncludeDir: filepath.Join(root, "include"), Root: root}, nil
	}

	log.Infof("fetching %s %s", spec.Name, spec.Release(r.cfg.Versions))
	if err := r.fetcher.Fetch(ctx, spec, r.cfg, root); err != nil {
		return locate.Location{}, err
	}

	log.Infof("compiling %s", spec.Name)
	art, err := r.compiler.Compile(spec, root, upstream)
	if err != nil {
		return locate.Location{}, err
	}
	return locate.Location{IncludeDir: art.IncludeDir, Root: art.Root}, nil
}

// upstreamIncludes collects the include directories of spec's
// dependencies from the registry. A dependency without published
// metadata falls back to its vendored headers when those exist.
func (r *Runner) upstreamIncludes(spec *library.Spec) ([]string, error) {
	var dirs []string
	for _, dep := range spec.Deps {
		info, ok, err := r.registry.Lookup(dep)
		if err != nil {
			return nil, err
		}
		if ok {
			dirs = append(dirs, info.IncludeDir)
			continue
		}
		depSpec, known := library.Lookup(dep)
		if !known {
			return nil, fmt.Errorf("%s depends on unknown library %q", spec.Name, dep)
		}
		vendored := filepath.Join(r.cfg.VendorDir, filepath.FromSlash(depSpec.VendoredInclude))
		if _, err := os.Stat(vendored); err == nil {
			log.Warnf("no metadata for %s, using vendored headers at %s", dep, vendored)
			dirs = append(dirs, vendored)
			continue
		}
		log.Warnf("no metadata and no vendored headers for %s", dep)
	}
	return dirs, nil
}
