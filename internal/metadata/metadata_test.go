package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestPublishLookupRoundtrip(t *testing.T) {
	r := New(t.TempDir())

	want := Info{
		Name:       "cspice",
		IncludeDir: "/out/include",
		LibDir:     "/out/lib",
		LibName:    "cspice",
		LinkArgs:   []string{"/DEFAULTLIB:msvcrt.lib"},
	}
	if err := r.Publish(want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, ok, err := r.Lookup("cspice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("Lookup found no entry after Publish")
	}
	if got.Published.IsZero() {
		t.Error("Published timestamp not set")
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Info{}, "Published")); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupMissing(t *testing.T) {
	r := New(t.TempDir())
	_, ok, err := r.Lookup("calceph")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("Lookup reported an entry that was never published")
	}
}

func TestPublishIsWriteOnce(t *testing.T) {
	r := New(t.TempDir())
	info := Info{Name: "calceph", IncludeDir: "/a"}
	if err := r.Publish(info); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if err := r.Publish(info); err == nil {
		t.Error("second Publish in the same invocation succeeded")
	}
}

func TestPublishReplacesPriorInvocation(t *testing.T) {
	ws := t.TempDir()

	old := New(ws)
	if err := old.Publish(Info{Name: "cspice", IncludeDir: "/old"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// A fresh registry models a new build invocation.
	fresh := New(ws)
	if err := fresh.Publish(Info{Name: "cspice", IncludeDir: "/new"}); err != nil {
		t.Fatalf("Publish after restart: %v", err)
	}
	got, ok, err := fresh.Lookup("cspice")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if got.IncludeDir != "/new" {
		t.Errorf("IncludeDir = %q, want %q", got.IncludeDir, "/new")
	}
}

func TestLookupCorruptEntry(t *testing.T) {
	ws := t.TempDir()
	r := New(ws)
	dir := filepath.Join(ws, "metadata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cspice.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Lookup("cspice"); err == nil {
		t.Error("Lookup accepted a corrupt entry")
	}
}
