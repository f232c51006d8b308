package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show upload sessions and synchronization state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		ws.Refresh(cmd.Context())

		if repo := ws.Repository(); repo != nil {
			fmt.Printf("Repository: %s (%s", repo.RepoName, repo.Status)
			if repo.LastSyncAt != "" {
				fmt.Printf(", last sync %s", repo.LastSyncAt)
			}
			fmt.Println(")")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
