// Package library declares the native library integrations starsys knows
// how to acquire, compile and bind, along with the dependency edges
// between them.
package library

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// BuildKind selects the compilation strategy for a library.
type BuildKind int

const (
	// CC compiles every source file under SourceSubdir directly and
	// archives the objects into a static library.
	CC BuildKind = iota
	// CMake drives the library's own CMake build.
	CMake
)

// Profile is the flag set for one toolchain family. Flags that the
// active compiler does not understand are dropped, not errors. Defines
// carry the exact NAME or NAME=VALUE spelling; a trailing "=" defines
// the symbol with empty expansion text.
type Profile struct {
	Flags   []string
	Defines []string
}

// Spec describes one native library integration.
type Spec struct {
	Name    string // canonical name, also the static library name
	EnvVar  string // override environment variable
	Version string
	Deps    []string // names of libraries whose include paths this build needs

	VendoredInclude string // vendored header dir, relative to the vendor root
	OverlaySrc      string // vendored source dir copied over the fetched tree, empty if none

	SourceSubdir string   // source files location inside the library root
	HeaderSubdir string   // public header location inside the library root
	Headers      []string // curated public headers; empty means every .h
	HeaderDst    string   // subdir of the output include dir to copy into

	BindHeaders []string // headers handed to the binding generator
	BindExclude []string // generated names to suppress

	Build       BuildKind
	MSVC, GNU   Profile
	RuntimeLink bool // Windows C runtime variant selection applies

	// LibRenames are post-extraction renames inside the library root,
	// applied on POSIX targets (e.g. cspice.a -> libcspice.a so that
	// -lcspice resolves).
	LibRenames [][2]string

	// Archive builds the platform-specific download URL for a release
	// version, validating the version where the upstream tag scheme
	// allows it.
	Archive func(version, osName, arch string) (url, ext string, err error)
	// TopDir names the directory a release archive extracts to.
	TopDir func(version string) string
}

// Release returns the version to fetch: the per-library entry from the
// configuration's version map when present, the built-in default
// otherwise.
func (s *Spec) Release(overrides map[string]string) string {
	if v := overrides[s.Name]; v != "" {
		return v
	}
	return s.Version
}

// ArchiveURL returns the release archive URL and its format extension
// ("tar.gz", "tar.Z", "zip", ...) for a version and target platform.
func (s *Spec) ArchiveURL(version, osName, arch string) (url, ext string, err error) {
	if s.Archive == nil {
		return "", "", fmt.Errorf("%s: no source archive available", s.Name)
	}
	return s.Archive(version, osName, arch)
}

// ExtractedDir returns the top-level directory name the release archive
// unpacks to, which typically embeds the version string.
func (s *Spec) ExtractedDir(version string) string {
	return s.TopDir(version)
}

const (
	cspiceBase = "https://naif.jpl.nasa.gov/pub/naif/toolkit//C"

	calcephVersion = "4_0_5"
	calcephURL     = "https://gitlab.obspm.fr/imcce_calceph/calceph/-/archive/calceph_%s/calceph-calceph_%s.tar.gz"

	supernovasVersion = "1.4.0"
	supernovasURL     = "https://github.com/Smithsonian/SuperNOVAS/archive/refs/tags/%s.tar.gz"
)

// cspicePlatform maps a GOOS/GOARCH pair to the NAIF prebuilt-source
// bundle variant and archive extension.
func cspicePlatform(osName, arch string) (platform, ext string, err error) {
	switch osName {
	case "linux":
		return "PC_Linux_GCC_64bit", "tar.Z", nil
	case "darwin":
		if arch == "arm64" {
			return "MacM1_OSX_clang_64bit", "tar.Z", nil
		}
		return "MacIntel_OSX_AppleC_64bit", "tar.Z", nil
	case "windows":
		return "PC_Windows_VisualC_64bit", "zip", nil
	}
	return "", "", fmt.Errorf("no CSPICE bundle for %s/%s, download it manually", osName, arch)
}

var specs = []*Spec{
	{
		Name:            "cspice",
		EnvVar:          "CSPICE_DIR",
		Version:         "N0067",
		VendoredInclude: "cspice/include",
		SourceSubdir:    "src/cspice",
		HeaderSubdir:    "include",
		HeaderDst:       "cspice",
		BindHeaders:     []string{"cspice/SpiceUsr.h"},
		Build:           CC,
		MSVC: Profile{
			Flags: []string{"/TC", "/MP", "/O2"},
			Defines: []string{
				"KR_headers",
				"_COMPLEX_DEFINED",
				"MSDOS",
				"OMIT_BLANK_CC",
				"NON_ANSI_STDIO",
			},
		},
		GNU: Profile{
			Flags:   []string{"-ansi", "-m64", "-O2", "-fPIC"},
			Defines: []string{"NON_UNIX_STDIO"},
		},
		LibRenames: [][2]string{{"lib/cspice.a", "lib/libcspice.a"}},
		// NAIF serves only the current toolkit release, so the version
		// never enters the URL.
		Archive: func(version, osName, arch string) (string, string, error) {
			platform, ext, err := cspicePlatform(osName, arch)
			if err != nil {
				return "", "", err
			}
			return fmt.Sprintf("%s/%s/packages/cspice.%s", cspiceBase, platform, ext), ext, nil
		},
		TopDir: func(string) string { return "cspice" },
	},
	{
		Name:            "calceph",
		EnvVar:          "CALCEPH_DIR",
		Version:         calcephVersion,
		VendoredInclude: "calceph/include",
		SourceSubdir:    "src",
		HeaderSubdir:    "include",
		BindHeaders:     []string{"calceph.h"},
		Build:           CMake,
		Archive: func(version, osName, arch string) (string, string, error) {
			return fmt.Sprintf(calcephURL, version, version), "tar.gz", nil
		},
		TopDir: func(version string) string { return "calceph-calceph_" + version },
	},
	{
		Name:            "supernovas",
		EnvVar:          "SUPERNOVAS_DIR",
		Version:         supernovasVersion,
		Deps:            []string{"cspice", "calceph"},
		VendoredInclude: "SuperNOVAS/include",
		OverlaySrc:      "SuperNOVAS/src",
		SourceSubdir:    "src",
		HeaderSubdir:    "include",
		Headers: []string{
			"novas-calceph.h",
			"novas-cspice.h",
			"novas.h",
			"nutation.h",
			"solarsystem.h",
		},
		BindHeaders: []string{
			"novas-calceph.h",
			"novas-cspice.h",
			"novas.h",
			"nutation.h",
			"solarsystem.h",
		},
		BindExclude: []string{"FP_NAN", "FP_INFINITE", "FP_ZERO", "FP_SUBNORMAL", "FP_NORMAL"},
		Build:       CC,
		MSVC: Profile{
			Flags: []string{"/std:c11", "/MP", "/O2"},
			Defines: []string{
				"restrict=",
				"strcasecmp=_stricmp",
				"strncasecmp=_strnicmp",
				"_CRT_SECURE_NO_WARNINGS",
				"_CRT_NONSTDC_NO_DEPRECATE",
			},
		},
		RuntimeLink: true,
		// SuperNOVAS tags releases with semantic versions, so a
		// configured version that is not one is rejected before the
		// URL is built.
		Archive: func(version, osName, arch string) (string, string, error) {
			tag := "v" + version
			if !semver.IsValid(tag) {
				return "", "", fmt.Errorf("supernovas: release %q is not a semantic version", version)
			}
			return fmt.Sprintf(supernovasURL, tag), "tar.gz", nil
		},
		TopDir: func(version string) string { return "SuperNOVAS-" + version },
	},
}

// All returns every known library spec in declaration order.
func All() []*Spec {
	return specs
}

// Lookup finds a library spec by name.
func Lookup(name string) (*Spec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// OverrideVars maps each library's override variable to its name.
func OverrideVars() map[string]string {
	m := make(map[string]string, len(specs))
	for _, s := range specs {
		m[s.EnvVar] = s.Name
	}
	return m
}

// BuildOrder expands the requested libraries with their transitive
// dependencies and returns them leaves-first, so that every library is
// processed after everything it depends on.
func BuildOrder(names []string) ([]*Spec, error) {
	var order []*Spec
	state := make(map[string]int) // 0 unvisited, 1 visiting, 2 done

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("dependency cycle through %s", name)
		}
		s, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("unknown library %q", name)
		}
		state[name] = 1
		for _, dep := range s.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = 2
		order = append(order, s)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
