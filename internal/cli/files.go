package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the synchronized file tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		_, err = ws.Tree(cmd.Context())
		return err
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <workspace-path>",
	Short: "Render a preview of a workspace file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		_, err = ws.Preview(cmd.Context(), args[0])
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past synchronizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		entries, err := ws.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No synchronization history.")
			return nil
		}
		for _, entry := range entries {
			line := fmt.Sprintf("%s  %-9s  %d files",
				entry.Timestamp().Format("2006-01-02 15:04"), entry.Status, entry.FileCount)
			if entry.Error != "" {
				line += "  " + entry.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of history entries")
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(historyCmd)
}
