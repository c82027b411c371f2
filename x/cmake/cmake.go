// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// CMake drives CMake-based builds.
type CMake struct {
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	defines    []string

	stdout io.Writer
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		stdout:     os.Stdout,
	}
}

// Generator sets the CMake generator (e.g. "NMake Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Define adds a -D<key>=<value> definition in call order.
func (c *CMake) Define(key, value string) {
	c.defines = append(c.defines, "-D"+key+"="+value)
}

// DefineBool adds a -D<key>=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.Define(key, v)
}

// Include adds dir to the header search path used during configuration.
func (c *CMake) Include(dir string) {
	c.defines = append(c.defines, "-DCMAKE_INCLUDE_PATH="+dir)
}

// Stdout redirects tool output.
func (c *CMake) Stdout(w io.Writer) { c.stdout = w }

// Configure runs "cmake -S <source> -B <build>" with all configured
// options. Extra args are appended at the end.
func (c *CMake) Configure(args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "-DCMAKE_INSTALL_PREFIX="+c.installDir)
	}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "-DCMAKE_BUILD_TYPE="+c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.defines...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(cmakeArgs)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	return c.run(append(cmakeArgs, args...))
}

// Install runs "cmake --install <build>" with optional extra arguments.
func (c *CMake) Install(args ...string) error {
	cmakeArgs := []string{"--install", c.buildDir}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", c.installDir)
	}
	return c.run(append(cmakeArgs, args...))
}

// OutputDir returns installDir if set, otherwise buildDir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

func (c *CMake) run(args []string) error {
	cmd := exec.Command("cmake", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("cmake %s: %w\n%s", args[0], err, output)
	}
	if len(output) > 0 && c.stdout != nil {
		c.stdout.Write(output)
	}
	return nil
}
