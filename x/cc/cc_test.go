package cc

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestFlagIfSupportedFiltersByFamily(t *testing.T) {
	gnu := New(t.TempDir())
	gnu.FlagIfSupported("-ansi", "/TC", "-fPIC", "/MP")
	if got, want := strings.Join(gnu.condFlags, " "), "-ansi -fPIC"; got != want {
		t.Errorf("gnu flags = %q, want %q", got, want)
	}

	msvc := New(t.TempDir())
	msvc.MSVC()
	msvc.FlagIfSupported("-ansi", "/TC", "-fPIC", "/MP")
	if got, want := strings.Join(msvc.condFlags, " "), "/TC /MP"; got != want {
		t.Errorf("msvc flags = %q, want %q", got, want)
	}
}

func TestFlagIfSupportedDropsRejectedFlags(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not available")
	}
	if _, err := exec.LookPath("ar"); err != nil {
		t.Skip("ar not available")
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "answer.c")
	if err := os.WriteFile(src, []byte("int answer(void) { return 42; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	b := New(out)
	b.FlagIfSupported("-O2", "-fno-such-option-starsys")
	b.Files(src)
	if err := b.Compile("answer"); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, f := range b.flags {
		if f == "-fno-such-option-starsys" {
			t.Error("rejected flag survived into the flag list")
		}
	}
	if _, err := os.Stat(filepath.Join(out, "lib", "libanswer.a")); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestCompileArgs(t *testing.T) {
	t.Run("gnu", func(t *testing.T) {
		b := New("out")
		b.Flag("-O2")
		b.Define("NON_UNIX_STDIO", "")
		b.Define("strcasecmp", "_stricmp")
		b.Include("/deps/include")

		args := strings.Join(b.compileArgs("eph.c", "out/obj/eph.o"), " ")
		want := "-c -O2 -DNON_UNIX_STDIO -Dstrcasecmp=_stricmp -I/deps/include -o out/obj/eph.o eph.c"
		if args != want {
			t.Errorf("args = %q, want %q", args, want)
		}
	})

	t.Run("msvc", func(t *testing.T) {
		b := New("out")
		b.MSVC()
		b.Flag("/O2")
		b.Define("MSDOS", "")
		b.Include(`C:\deps\include`)

		args := strings.Join(b.compileArgs("eph.c", `out\obj\eph.obj`), " ")
		want := `/nologo /c /O2 /DMSDOS /IC:\deps\include /Foout\obj\eph.obj eph.c`
		if args != want {
			t.Errorf("args = %q, want %q", args, want)
		}
	})
}

func TestLibFile(t *testing.T) {
	b := New("")
	if got := b.LibFile("cspice"); got != "libcspice.a" {
		t.Errorf("LibFile = %q, want libcspice.a", got)
	}
	b.MSVC()
	if got := b.LibFile("cspice"); got != "cspice.lib" {
		t.Errorf("LibFile = %q, want cspice.lib", got)
	}
}

func TestCompileNoFiles(t *testing.T) {
	if err := New(t.TempDir()).Compile("empty"); err == nil {
		t.Error("Compile accepted an empty unit set")
	}
}

func TestCompileProducesArchive(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not available")
	}
	if _, err := exec.LookPath("ar"); err != nil {
		t.Skip("ar not available")
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "answer.c")
	if err := os.WriteFile(src, []byte("int answer(void) { return 42; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	b := New(out)
	b.Flag("-O2", "-fPIC")
	b.Files(src)
	if err := b.Compile("answer"); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "lib", "libanswer.a")); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestCompileSurfacesDiagnostics(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not available")
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "broken.c")
	if err := os.WriteFile(src, []byte("int broken(void) { return }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := New(t.TempDir())
	b.Files(src)
	err := b.Compile("broken")
	if err == nil {
		t.Fatal("Compile accepted invalid C")
	}
	if !strings.Contains(err.Error(), "broken.c") {
		t.Errorf("diagnostic does not name the failing file: %v", err)
	}
}
