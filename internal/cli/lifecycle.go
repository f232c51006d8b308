package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kickstorm/workspacectl/pkg/session"
)

var cancelYes bool

var finalizeCmd = &cobra.Command{
	Use:   "finalize [session-id]",
	Short: "Finalize an upload session and start synchronization",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}
		return ws.Finalize(cmd.Context(), sessionID)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [session-id]",
	Short: "Cancel an upload session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}
		return ws.Cancel(cmd.Context(), sessionID, confirmCancel)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Watch a session until synchronization resolves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()

		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}
		return ws.Watch(cmd.Context(), sessionID)
	},
}

// confirmCancel prompts before destroying a session, unless --yes was
// passed.
func confirmCancel(sess session.Session) bool {
	if cancelYes {
		return true
	}
	fmt.Printf("Cancel upload session %s (%d files)? [y/N] ", sess.ID, sess.FileCount)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	cancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(watchCmd)
}
