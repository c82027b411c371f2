// Package archive unpacks release archives. Formats the platform archive
// tool handles natively (.tar.gz, .tar.Z, .zip) go through tar; .tar.xz
// mirrors are decompressed in-process.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Format identifies how a downloaded archive is packed.
type Format string

const (
	TarGz Format = "tar.gz"
	TarZ  Format = "tar.Z"
	TarXz Format = "tar.xz"
	Zip   Format = "zip"
)

// FormatOf derives the archive format from a file name or URL extension.
func FormatOf(name string) (Format, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGz, nil
	case strings.HasSuffix(name, ".tar.Z"):
		return TarZ, nil
	case strings.HasSuffix(name, ".tar.xz"):
		return TarXz, nil
	case strings.HasSuffix(name, ".zip"):
		return Zip, nil
	}
	return "", fmt.Errorf("unrecognized archive format: %s", name)
}

// Extract unpacks the archive at path into the directory containing it.
// A failing extraction tool is fatal and its diagnostic output is
// preserved in the returned error.
func Extract(path string, format Format) error {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	switch format {
	case TarGz:
		return run(dir, "tar", "-xzf", name)
	case TarZ:
		// tar.Z needs a separate decompression pass before untarring.
		if err := run(dir, "gzip", "-d", name); err != nil {
			return err
		}
		return run(dir, "tar", "-xf", strings.TrimSuffix(name, ".Z"))
	case Zip:
		return run(dir, "tar", "-xf", name)
	case TarXz:
		return extractTarXz(path, dir)
	}
	return fmt.Errorf("unrecognized archive format: %s", format)
}

// run executes an extraction tool, surfacing its combined output on a
// non-zero exit.
func run(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, output)
	}
	return nil
}

// extractTarXz decompresses and untars an xz archive without an external
// tool, since xz is not universally available.
func extractTarXz(path, destDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("xz reader: %w", err)
	}
	tr := tar.NewReader(xzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := secureJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}

// secureJoin resolves an archive member path under dir, rejecting entries
// that would escape it.
func secureJoin(dir, name string) (string, error) {
	name = filepath.FromSlash(strings.TrimPrefix(name, "./"))
	target := filepath.Join(dir, name)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}
