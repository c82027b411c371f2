// Package config models the build configuration for one starsys
// invocation. The configuration is assembled once, from the environment
// snapshot and an optional starsys.yaml file, and is read-only afterwards.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/astrokit/starsys/internal/env"
	"gopkg.in/yaml.v3"
)

// Toolchain identifies the C toolchain family in use.
type Toolchain int

const (
	GNU Toolchain = iota
	MSVC
)

func (t Toolchain) String() string {
	if t == MSVC {
		return "msvc"
	}
	return "gnu"
}

// SourceMode selects how a library without an override path is acquired.
type SourceMode int

const (
	// Skip expects a prebuilt or vendored location only.
	Skip SourceMode = iota
	// FetchAndCompile downloads the release archive and compiles it.
	FetchAndCompile
)

// Build is the configuration consumed by every pipeline stage.
type Build struct {
	Workspace string // root for fetched sources, outputs and metadata
	VendorDir string // root of the vendored header/source trees

	OS        string // target operating system (GOOS form)
	Arch      string // target architecture (GOARCH form)
	Toolchain Toolchain
	CC        string // compiler executable from the environment, may be empty
	Debug     bool

	Source    map[string]SourceMode // per-library acquisition mode
	Overrides map[string]string     // per-library override directory, by library name
	Versions  map[string]string     // per-library release version overrides

	Verbose bool
}

// Mode returns the acquisition mode for a library, defaulting to Skip.
func (b *Build) Mode(lib string) SourceMode {
	return b.Source[lib]
}

// File is the on-disk starsys.yaml representation.
type File struct {
	Workspace string            `yaml:"workspace,omitempty"`
	VendorDir string            `yaml:"vendor,omitempty"`
	Debug     bool              `yaml:"debug,omitempty"`
	Source    map[string]bool   `yaml:"source,omitempty"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
	Versions  map[string]string `yaml:"versions,omitempty"`
}

// Load parses a starsys.yaml file. A missing file is not an error and
// yields a nil File.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// New assembles the build configuration from the environment snapshot and
// an optional config file. overrideNames maps override variable names to
// library names so that environment overrides land under the library key.
func New(e env.Environ, file *File, overrideNames map[string]string) (*Build, error) {
	b := &Build{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Toolchain: detectToolchain(e.CC),
		CC:        e.CC,
		VendorDir: "third_party",
		Source:    make(map[string]SourceMode),
		Overrides: make(map[string]string),
		Versions:  make(map[string]string),
	}

	if file != nil {
		if file.VendorDir != "" {
			b.VendorDir = file.VendorDir
		}
		b.Debug = file.Debug
		for lib, fromSource := range file.Source {
			if fromSource {
				b.Source[lib] = FetchAndCompile
			}
		}
		for lib, dir := range file.Overrides {
			b.Overrides[lib] = dir
		}
		for lib, version := range file.Versions {
			b.Versions[lib] = version
		}
		if file.Workspace != "" {
			b.Workspace = file.Workspace
		}
	}

	// Environment overrides take precedence over the config file.
	for envVar, dir := range e.Overrides {
		lib, ok := overrideNames[envVar]
		if !ok {
			continue
		}
		b.Overrides[lib] = dir
	}

	if b.Workspace == "" {
		dir, err := env.WorkspaceDir(e)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		b.Workspace = dir
	} else if err := os.MkdirAll(b.Workspace, 0700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return b, nil
}

// detectToolchain picks the toolchain family. On Windows the MSVC family
// is assumed unless CC names a GNU-flavored compiler.
func detectToolchain(cc string) Toolchain {
	if runtime.GOOS != "windows" {
		return GNU
	}
	cc = strings.ToLower(cc)
	if strings.Contains(cc, "gcc") || strings.Contains(cc, "clang") || strings.Contains(cc, "mingw") {
		return GNU
	}
	return MSVC
}
