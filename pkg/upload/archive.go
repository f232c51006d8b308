package upload

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// PackageDirectory builds a zip archive of the directory's contents in
// a temporary file, the CLI equivalent of picking an archive in the
// browser. The caller owns the returned file and removes it when done.
func PackageDirectory(dir string) (*os.File, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("upload: resolving directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("upload: reading directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("upload: %s is not a directory", dir)
	}

	archive, err := os.CreateTemp("", "workspacectl-archive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("upload: creating archive file: %w", err)
	}

	writer := zip.NewWriter(archive)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		part, err := writer.Create(filepath.ToSlash(relative))
		if err != nil {
			return err
		}
		// #nosec G304 -- path comes from walking the user-chosen directory
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(part, file)
		return err
	})
	if walkErr == nil {
		walkErr = writer.Close()
	}
	if walkErr != nil {
		archive.Close()
		os.Remove(archive.Name())
		return nil, fmt.Errorf("upload: packaging %s: %w", dir, walkErr)
	}

	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		archive.Close()
		os.Remove(archive.Name())
		return nil, fmt.Errorf("upload: rewinding archive: %w", err)
	}
	return archive, nil
}

// ArchiveName derives the multipart filename for a packaged
// directory.
func ArchiveName(dir string) string {
	base := filepath.Base(strings.TrimSuffix(dir, string(filepath.Separator)))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "workspace"
	}
	return base + ".zip"
}
