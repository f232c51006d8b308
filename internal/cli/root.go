// Package cli implements the workspacectl command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kickstorm/workspacectl/pkg/config"
	"github.com/kickstorm/workspacectl/pkg/workspace"
)

var (
	configPath string
	verbose    bool
	version    string = "dev"
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "workspacectl",
	Short: "Upload and synchronize project workspace files",
	Long: `workspacectl drives upload sessions against a remote project
workspace: upload archives or single files, watch GitHub
synchronization, browse the synchronized file tree, and preview files.

Quick Start:
  workspacectl upload ./project          # Package and upload a directory
  workspacectl status                    # Show sessions and history
  workspacectl finalize                  # Finalize the active session`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "workspacectl.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// openWorkspace loads configuration and builds the orchestrator. The
// caller must Close it.
func openWorkspace() (*workspace.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return workspace.New(workspace.Options{Config: cfg})
}
