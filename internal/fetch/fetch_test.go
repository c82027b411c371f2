package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/library"
)

// sourceArchive builds a tar.gz whose top-level directory embeds a
// version string, mimicking a release tarball.
func sourceArchive(t *testing.T, topDir string, files map[string]string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	if err := tw.WriteHeader(&tar.Header{Name: topDir + "/", Mode: 0o755, Typeflag: tar.TypeDir}); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     topDir + "/" + name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return gzBuf.Bytes()
}

// testSpec returns a spec pointing at srv for its release archive.
func testSpec(srv *httptest.Server) *library.Spec {
	return &library.Spec{
		Name:         "ephlib",
		Version:      "2.1.0",
		SourceSubdir: "src",
		TopDir:       func(version string) string { return "ephlib-" + version },
		Archive: func(version, osName, arch string) (string, string, error) {
			return srv.URL + "/ephlib-" + version + ".tar.gz", "tar.gz", nil
		},
	}
}

func TestFetchNormalizesDirectoryName(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	payload := sourceArchive(t, "ephlib-2.1.0", map[string]string{
		"src/eph.c": "int eph;\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	cfg := &config.Build{OS: "linux", Arch: "amd64"}
	dest := t.TempDir()
	if err := New(nil).Fetch(context.Background(), testSpec(srv), cfg, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The versioned name must be gone and the fixed name populated.
	if _, err := os.Stat(filepath.Join(dest, "ephlib", "src", "eph.c")); err != nil {
		t.Errorf("normalized tree missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "ephlib-2.1.0")); !os.IsNotExist(err) {
		t.Error("versioned directory still present after normalization")
	}
}

func TestFetchReplacesPriorTree(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	payload := sourceArchive(t, "ephlib-2.1.0", map[string]string{"src/eph.c": "int eph;\n"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	cfg := &config.Build{OS: "linux", Arch: "amd64"}
	dest := t.TempDir()
	stale := filepath.Join(dest, "ephlib", "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := New(nil).Fetch(context.Background(), testSpec(srv), cfg, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale tree survived normalization")
	}
}

func TestFetchFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := &config.Build{OS: "linux", Arch: "amd64"}
	err := New(nil).Fetch(context.Background(), testSpec(srv), cfg, t.TempDir())
	if err == nil {
		t.Fatal("Fetch succeeded on a 404")
	}
}

func TestFetchAppliesLibRenames(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	payload := sourceArchive(t, "ephlib-2.1.0", map[string]string{
		"lib/ephlib.a": "!<arch>\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	spec := testSpec(srv)
	spec.LibRenames = [][2]string{{"lib/ephlib.a", "lib/libephlib.a"}}

	dest := t.TempDir()
	cfg := &config.Build{OS: "linux", Arch: "amd64"}
	if err := New(nil).Fetch(context.Background(), spec, cfg, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "ephlib", "lib", "libephlib.a")); err != nil {
		t.Errorf("renamed archive missing: %v", err)
	}
}

func TestFetchOverlayReplacesSources(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	payload := sourceArchive(t, "ephlib-2.1.0", map[string]string{
		"src/upstream.c": "int upstream;\n",
		"src/shared.c":   "int original;\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	vendor := t.TempDir()
	overlay := filepath.Join(vendor, "ephlib", "src")
	if err := os.MkdirAll(overlay, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(overlay, "shared.c"), []byte("int patched;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vendor, "ephlib", "VERSION"), []byte("2.1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := testSpec(srv)
	spec.OverlaySrc = "ephlib/src"

	dest := t.TempDir()
	cfg := &config.Build{OS: "linux", Arch: "amd64", VendorDir: vendor}
	if err := New(nil).Fetch(context.Background(), spec, cfg, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Overlay is destructive: upstream-only files are gone, vendored
	// content wins for shared files.
	if _, err := os.Stat(filepath.Join(dest, "ephlib", "src", "upstream.c")); !os.IsNotExist(err) {
		t.Error("upstream source survived the overlay")
	}
	got, err := os.ReadFile(filepath.Join(dest, "ephlib", "src", "shared.c"))
	if err != nil {
		t.Fatalf("overlaid file missing: %v", err)
	}
	if string(got) != "int patched;\n" {
		t.Errorf("shared.c = %q, want the vendored content", got)
	}
}

func TestFetchRejectsInvalidVersionOverride(t *testing.T) {
	spec, ok := library.Lookup("supernovas")
	if !ok {
		t.Fatal("supernovas integration missing")
	}
	cfg := &config.Build{
		OS:       "linux",
		Arch:     "amd64",
		Versions: map[string]string{"supernovas": "latest"},
	}
	if err := New(nil).Fetch(context.Background(), spec, cfg, t.TempDir()); err == nil {
		t.Fatal("Fetch accepted a release that is not a semantic version")
	}
}
