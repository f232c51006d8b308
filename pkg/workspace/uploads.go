package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kickstorm/workspacectl/pkg/upload"
)

// UploadZip uploads an existing zip archive as a new workspace
// session.
func (o *Orchestrator) UploadZip(ctx context.Context, archivePath string) error {
	// #nosec G304 -- path is from CLI args, controlled by the operator
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("workspace: opening archive: %w", err)
	}
	defer file.Close()

	return o.uploads.Upload(ctx, upload.Payload{
		Kind: upload.KindZip,
		Name: filepath.Base(archivePath),
		Body: file,
	})
}

// UploadDirectory packages a directory into a temporary zip archive
// and uploads it.
func (o *Orchestrator) UploadDirectory(ctx context.Context, dir string) error {
	archive, err := upload.PackageDirectory(dir)
	if err != nil {
		return err
	}
	defer func() {
		name := archive.Name()
		archive.Close()
		os.Remove(name)
	}()

	return o.uploads.Upload(ctx, upload.Payload{
		Kind: upload.KindZip,
		Name: upload.ArchiveName(dir),
		Body: archive,
	})
}

// UploadFile uploads a single file to the given workspace-relative
// destination. An empty destination reuses the file's base name.
func (o *Orchestrator) UploadFile(ctx context.Context, localPath, relativePath string) error {
	if relativePath == "" {
		relativePath = filepath.Base(localPath)
	}
	// #nosec G304 -- path is from CLI args, controlled by the operator
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("workspace: opening file: %w", err)
	}
	defer file.Close()

	return o.uploads.Upload(ctx, upload.Payload{
		Kind:         upload.KindFile,
		Name:         filepath.Base(localPath),
		RelativePath: relativePath,
		Body:         file,
	})
}
