// Package fetch downloads a library's release archive and prepares a
// version-independent source tree under the working directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrokit/starsys/internal/archive"
	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/x/gnu"
	"github.com/qiniu/x/log"
)

// versionMarker is the optional file in a vendored library directory that
// records which release the vendored sources were taken from.
const versionMarker = "VERSION"

// Fetcher acquires native source trees. Downloads block with no timeout
// and no retry; a failed transfer is a fatal build error.
type Fetcher struct {
	client *http.Client
}

// New returns a Fetcher using the given HTTP client, or a default
// timeout-free client when nil.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client}
}

// Fetch downloads and unpacks spec's release archive into destDir,
// leaving the source tree at destDir/<name> regardless of the version
// string embedded in the archive's top-level directory. For libraries
// with a vendored source overlay, the vendored files then replace the
// fetched source directory.
func (f *Fetcher) Fetch(ctx context.Context, spec *library.Spec, cfg *config.Build, destDir string) error {
	version := spec.Release(cfg.Versions)
	url, ext, err := spec.ArchiveURL(version, cfg.OS, cfg.Arch)
	if err != nil {
		return err
	}
	format, err := archive.FormatOf(url)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	archivePath := filepath.Join(destDir, spec.Name+"."+ext)
	log.Infof("fetching %s %s from %s", spec.Name, version, url)
	if err := f.download(ctx, url, archivePath); err != nil {
		return fmt.Errorf("download %s: %w", spec.Name, err)
	}

	if err := archive.Extract(archivePath, format); err != nil {
		return fmt.Errorf("extract %s: %w", spec.Name, err)
	}

	root, err := normalize(destDir, spec, version)
	if err != nil {
		return err
	}

	if cfg.OS != "windows" {
		for _, rename := range spec.LibRenames {
			from := filepath.Join(root, filepath.FromSlash(rename[0]))
			to := filepath.Join(root, filepath.FromSlash(rename[1]))
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("rename %s artifact: %w", spec.Name, err)
			}
		}
	}

	if spec.OverlaySrc != "" {
		if err := overlaySources(spec, cfg, root, version); err != nil {
			return err
		}
	}
	return nil
}

// download writes the body of url to dest. Any non-success status is
// fatal; native builds must be reproducible, so a failed fetch surfaces
// immediately instead of degrading silently.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// normalize renames the extracted top-level directory, which typically
// embeds the version string, to the fixed name downstream paths expect.
// Any previous tree at the target name is removed first.
func normalize(destDir string, spec *library.Spec, version string) (string, error) {
	from := filepath.Join(destDir, spec.ExtractedDir(version))
	to := filepath.Join(destDir, spec.Name)
	if from == to {
		if _, err := os.Stat(to); err != nil {
			return "", fmt.Errorf("extracted tree missing for %s: %w", spec.Name, err)
		}
		return to, nil
	}
	if err := os.RemoveAll(to); err != nil {
		return "", err
	}
	if err := os.Rename(from, to); err != nil {
		return "", fmt.Errorf("normalize %s source directory: %w", spec.Name, err)
	}
	return to, nil
}

// overlaySources replaces the fetched source directory with the vendored
// one, so local patches take precedence over the upstream release. The
// replacement is destructive. When the vendored tree records the release
// it was taken from, a mismatch against the fetched version is reported
// but does not stop the build.
func overlaySources(spec *library.Spec, cfg *config.Build, root string, version string) error {
	vendorDir := filepath.Join(cfg.VendorDir, filepath.FromSlash(spec.OverlaySrc))
	entries, err := os.ReadDir(vendorDir)
	if err != nil {
		return fmt.Errorf("read vendored sources for %s: %w", spec.Name, err)
	}

	if marker, err := os.ReadFile(filepath.Join(vendorDir, "..", versionMarker)); err == nil {
		vendored := strings.TrimSpace(string(marker))
		if gnu.Compare(vendored, version) != 0 {
			log.Warnf("vendored %s sources are from %s but release %s was fetched; the overlay may be stale",
				spec.Name, vendored, version)
		}
	}

	target := filepath.Join(root, filepath.FromSlash(spec.SourceSubdir))
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(vendorDir, entry.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(target, entry.Name()), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
