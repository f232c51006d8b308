package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var uploadDest string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a directory, zip archive, or single file",
	Long: `Upload workspace content as a new session.

Directories are packaged into a zip archive first. Files ending in
.zip are uploaded as archives; any other file is uploaded as a single
workspace file, optionally to a destination set with --dest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", path, err)
		}

		ctx := cmd.Context()
		switch {
		case info.IsDir():
			return ws.UploadDirectory(ctx, path)
		case strings.HasSuffix(strings.ToLower(path), ".zip"):
			return ws.UploadZip(ctx, path)
		default:
			return ws.UploadFile(ctx, path, uploadDest)
		}
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadDest, "dest", "", "Workspace-relative destination for single-file uploads")
	rootCmd.AddCommand(uploadCmd)
}
