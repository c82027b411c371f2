// Package compile turns a populated native source tree into a static
// archive and a curated public header set.
package compile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/x/cc"
	"github.com/astrokit/starsys/x/cmake"
)

// Artifact is the compiled output for one library.
type Artifact struct {
	Root       string // directory containing lib/ and include/
	LibDir     string
	IncludeDir string
	LibName    string
	LinkArgs   []string // extra link directives (Windows runtime handling)
}

// Compiler drives the C toolchain for one build configuration.
type Compiler struct {
	cfg *config.Build
	cc  string // compiler executable override, usually from $CC

	Stdout io.Writer
}

// New returns a Compiler for cfg. ccOverride names the compiler
// executable when the environment provides one.
func New(cfg *config.Build, ccOverride string) *Compiler {
	return &Compiler{cfg: cfg, cc: ccOverride, Stdout: os.Stdout}
}

// Compile builds spec's library from the source tree under root
// (root/<name>), linking upstream include paths into the search path,
// and leaves the artifact at root/lib with headers at root/include.
// There is no partial success: either the archive and header set are
// complete, or an error carrying the toolchain diagnostic is returned.
func (c *Compiler) Compile(spec *library.Spec, root string, upstreamIncludes []string) (*Artifact, error) {
	srcTree := filepath.Join(root, spec.Name)
	if _, err := os.Stat(srcTree); err != nil {
		return nil, fmt.Errorf("source tree for %s missing: %w", spec.Name, err)
	}

	var err error
	if spec.Build == library.CMake {
		err = c.compileCMake(spec, srcTree, root, upstreamIncludes)
	} else {
		err = c.compileCC(spec, srcTree, root, upstreamIncludes)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Root:       root,
		LibDir:     filepath.Join(root, "lib"),
		IncludeDir: filepath.Join(root, "include"),
		LibName:    spec.Name,
		LinkArgs:   RuntimeLinkArgs(c.cfg, spec),
	}, nil
}

// compileCC compiles every C file directly under the source subdirectory
// and archives the objects, then copies the curated headers out.
func (c *Compiler) compileCC(spec *library.Spec, srcTree, root string, upstreamIncludes []string) error {
	srcDir := filepath.Join(srcTree, filepath.FromSlash(spec.SourceSubdir))
	files, err := enumerateSources(srcDir)
	if err != nil {
		return fmt.Errorf("enumerate %s sources: %w", spec.Name, err)
	}

	b := cc.New(root)
	b.Stdout(c.Stdout)

	profile := spec.GNU
	if c.cfg.Toolchain == config.MSVC {
		b.MSVC()
		profile = spec.MSVC
	} else if c.cc != "" {
		b.Compiler(c.cc)
	}

	b.FlagIfSupported(profile.Flags...)
	b.Defines(profile.Defines...)
	if flag := c.runtimeFlag(spec); flag != "" {
		b.FlagIfSupported(flag)
	}

	b.Include(filepath.Join(srcTree, filepath.FromSlash(spec.HeaderSubdir)))
	for _, dir := range upstreamIncludes {
		b.Include(dir)
	}

	b.Files(files...)
	if err := b.Compile(spec.Name); err != nil {
		return err
	}

	return copyHeaders(spec, srcTree, root)
}

// compileCMake delegates to the library's own CMake build, which also
// installs its headers, so no curated copy is needed.
func (c *Compiler) compileCMake(spec *library.Spec, srcTree, root string, upstreamIncludes []string) error {
	cm := cmake.New(srcTree, filepath.Join(root, "build"), root)
	cm.Stdout(c.Stdout)

	if c.cfg.Debug {
		cm.BuildType("Debug")
	} else {
		cm.BuildType("Release")
	}
	cm.DefineBool("ENABLE_FORTRAN", false)
	if c.cfg.Toolchain == config.MSVC {
		cm.Generator("NMake Makefiles")
	}
	if len(upstreamIncludes) > 0 {
		cm.Include(strings.Join(upstreamIncludes, ";"))
	}

	if err := cm.Configure(); err != nil {
		return fmt.Errorf("configure %s: %w", spec.Name, err)
	}
	if err := cm.Build(); err != nil {
		return fmt.Errorf("build %s: %w", spec.Name, err)
	}
	if err := cm.Install(); err != nil {
		return fmt.Errorf("install %s: %w", spec.Name, err)
	}
	return nil
}

// runtimeFlag returns the MSVC runtime selection flag for libraries that
// need it, matching the debug/release configuration.
func (c *Compiler) runtimeFlag(spec *library.Spec) string {
	if !spec.RuntimeLink || c.cfg.OS != "windows" {
		return ""
	}
	if c.cfg.Debug {
		return "/MDd"
	}
	return "/MD"
}

// RuntimeLinkArgs returns the link directives that pin the chosen C
// runtime, preventing a mismatch between the static archive and the
// host binary. It depends only on the configuration, so callers reusing
// a previously compiled workdir get the same directives.
func RuntimeLinkArgs(cfg *config.Build, spec *library.Spec) []string {
	if !spec.RuntimeLink || cfg.OS != "windows" {
		return nil
	}
	runtime := "msvcrt"
	if cfg.Debug {
		runtime = "msvcrtd"
	}
	return []string{
		runtime + ".lib",
		"legacy_stdio_definitions.lib",
		"/NODEFAULTLIB:msvcrt.lib",
		"/NODEFAULTLIB:msvcrtd.lib",
		"/DEFAULTLIB:" + runtime + ".lib",
	}
}

// enumerateSources lists the C files directly under dir. Subdirectories
// are not descended into.
func enumerateSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".c" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no C sources under %s", dir)
	}
	return files, nil
}

// copyHeaders copies the curated public header set out of the source
// tree. An explicit header list is copied verbatim; an empty list means
// every header in the source include directory.
func copyHeaders(spec *library.Spec, srcTree, root string) error {
	srcInclude := filepath.Join(srcTree, filepath.FromSlash(spec.HeaderSubdir))
	dstInclude := filepath.Join(root, "include", spec.HeaderDst)
	if err := os.MkdirAll(dstInclude, 0o755); err != nil {
		return err
	}

	headers := spec.Headers
	if len(headers) == 0 {
		entries, err := os.ReadDir(srcInclude)
		if err != nil {
			return fmt.Errorf("read %s headers: %w", spec.Name, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".h" {
				headers = append(headers, entry.Name())
			}
		}
	}

	for _, h := range headers {
		data, err := os.ReadFile(filepath.Join(srcInclude, h))
		if err != nil {
			return fmt.Errorf("copy %s header: %w", spec.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dstInclude, h), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
