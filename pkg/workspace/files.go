package workspace

import (
	"context"
	"fmt"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/preview"
)

// Tree loads and renders the synchronized file listing.
func (o *Orchestrator) Tree(ctx context.Context) ([]api.FileInfo, error) {
	return o.trees.Load(ctx)
}

// Preview renders the viewer for a workspace path. The listing is
// consulted first so the declared size can gate the content fetch.
func (o *Orchestrator) Preview(ctx context.Context, relativePath string) (*preview.Result, error) {
	files, err := o.trees.Load(ctx)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.Path == relativePath {
			return o.previews.Show(ctx, file)
		}
	}
	return nil, api.NewError(api.KindUnknown, fmt.Sprintf("no such workspace file: %s", relativePath))
}
