// Package cc drives a C compiler and archiver to turn a set of source
// files into a static library.
package cc

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Build accumulates compiler configuration and produces a static archive.
type Build struct {
	compiler string
	archiver string
	outDir   string
	msvc     bool

	flags     []string
	condFlags []string
	defines   []string
	includes  []string
	files     []string

	flagOK map[string]bool

	stdout io.Writer
}

// New returns a Build that places objects and the archive under outDir.
// The toolchain defaults to the GNU family with "cc" and "ar".
func New(outDir string) *Build {
	return &Build{
		compiler: "cc",
		archiver: "ar",
		outDir:   outDir,
		stdout:   os.Stdout,
	}
}

// Compiler overrides the compiler executable.
func (b *Build) Compiler(name string) { b.compiler = name }

// Archiver overrides the archiver executable.
func (b *Build) Archiver(name string) { b.archiver = name }

// MSVC switches the driver to MSVC-style arguments (cl and lib).
func (b *Build) MSVC() {
	b.msvc = true
	b.compiler = "cl"
	b.archiver = "lib"
}

// Flag appends compiler flags verbatim.
func (b *Build) Flag(flags ...string) {
	b.flags = append(b.flags, flags...)
}

// FlagIfSupported records flags to use only if the active compiler
// accepts them. Flags spelled for the other toolchain family are
// dropped immediately; the rest are verified against the compiler when
// Compile runs, so one call site can carry both MSVC and GNU spellings
// and flags a particular toolchain rejects (such as -m64 on arm64)
// fall away silently.
func (b *Build) FlagIfSupported(flags ...string) {
	for _, f := range flags {
		if b.msvc == strings.HasPrefix(f, "/") {
			b.condFlags = append(b.condFlags, f)
		}
	}
}

// resolveCondFlags folds the conditional flags into the flag list,
// keeping only those the compiler accepts.
func (b *Build) resolveCondFlags() {
	for _, f := range b.condFlags {
		if b.supportsFlag(f) {
			b.flags = append(b.flags, f)
		}
	}
	b.condFlags = nil
}

// supportsFlag reports whether the compiler accepts flag, determined by
// compiling an empty translation unit with it. Results are cached per
// Build.
func (b *Build) supportsFlag(flag string) bool {
	if ok, seen := b.flagOK[flag]; seen {
		return ok
	}
	ok := b.tryFlag(flag)
	if b.flagOK == nil {
		b.flagOK = make(map[string]bool)
	}
	b.flagOK[flag] = ok
	return ok
}

func (b *Build) tryFlag(flag string) bool {
	dir, err := os.MkdirTemp("", "cc-flag-")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "empty.c")
	if err := os.WriteFile(src, []byte("int main(void) { return 0; }\n"), 0o644); err != nil {
		return false
	}
	var args []string
	if b.msvc {
		args = []string{"/nologo", "/c", flag, "/Fo" + filepath.Join(dir, "empty.obj"), src}
	} else {
		args = []string{"-c", flag, "-o", filepath.Join(dir, "empty.o"), src}
	}
	cmd := exec.Command(b.compiler, args...)
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Define adds a preprocessor definition.
func (b *Build) Define(name, value string) {
	d := name
	if value != "" {
		d += "=" + value
	}
	b.defines = append(b.defines, d)
}

// Defines adds preprocessor definitions in their exact NAME or
// NAME=VALUE spelling. A trailing "=" defines the name with empty
// expansion text, which Define cannot express.
func (b *Build) Defines(defs ...string) {
	b.defines = append(b.defines, defs...)
}

// Include adds a header search path.
func (b *Build) Include(dir string) {
	b.includes = append(b.includes, dir)
}

// Files adds source files to the compilation unit set.
func (b *Build) Files(files ...string) {
	b.files = append(b.files, files...)
}

// Stdout redirects compiler output.
func (b *Build) Stdout(w io.Writer) { b.stdout = w }

// LibFile returns the archive file name for a library on the active
// toolchain ("libfoo.a" or "foo.lib").
func (b *Build) LibFile(name string) string {
	if b.msvc {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

// Compile compiles every added file and archives the objects into a
// static library named after name under outDir/lib. Either the archive
// is complete or an error carrying the toolchain diagnostic is returned.
func (b *Build) Compile(name string) error {
	if len(b.files) == 0 {
		return fmt.Errorf("cc: no source files for %s", name)
	}
	b.resolveCondFlags()

	objDir := filepath.Join(b.outDir, "obj")
	libDir := filepath.Join(b.outDir, "lib")
	for _, dir := range []string{objDir, libDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	objects := make([]string, 0, len(b.files))
	for _, file := range b.files {
		obj := filepath.Join(objDir, objectName(file, b.msvc))
		if err := b.run(b.compiler, b.compileArgs(file, obj)); err != nil {
			return fmt.Errorf("compile %s: %w", filepath.Base(file), err)
		}
		objects = append(objects, obj)
	}

	lib := filepath.Join(libDir, b.LibFile(name))
	var args []string
	if b.msvc {
		args = append([]string{"/nologo", "/OUT:" + lib}, objects...)
	} else {
		args = append([]string{"rcs", lib}, objects...)
	}
	if err := b.run(b.archiver, args); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}

func (b *Build) compileArgs(file, obj string) []string {
	var args []string
	if b.msvc {
		args = append(args, "/nologo", "/c")
	} else {
		args = append(args, "-c")
	}
	args = append(args, b.flags...)
	for _, d := range b.defines {
		if b.msvc {
			args = append(args, "/D"+d)
		} else {
			args = append(args, "-D"+d)
		}
	}
	for _, dir := range b.includes {
		if b.msvc {
			args = append(args, "/I"+dir)
		} else {
			args = append(args, "-I"+dir)
		}
	}
	if b.msvc {
		args = append(args, "/Fo"+obj, file)
	} else {
		args = append(args, "-o", obj, file)
	}
	return args
}

func (b *Build) run(name string, args []string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", name, err, output)
	}
	if len(output) > 0 && b.stdout != nil {
		b.stdout.Write(output)
	}
	return nil
}

// objectName maps a source file to its object file name. Base names are
// unique because source enumeration is non-recursive.
func objectName(file string, msvc bool) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if msvc {
		return base + ".obj"
	}
	return base + ".o"
}
