package workspace

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/kickstorm/workspacectl/pkg/session"
	"github.com/kickstorm/workspacectl/pkg/view"
)

var statusStyles = map[session.Status]lipgloss.Style{
	session.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	session.StatusError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	session.StatusSyncing:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
}

var defaultStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

func statusLabel(status session.Status) string {
	style, ok := statusStyles[status]
	if !ok {
		style = defaultStatusStyle
	}
	return style.Render(string(status))
}

// renderPanels redraws the session, lock and history panels from the
// store. It runs on every store mutation.
func (o *Orchestrator) renderPanels() {
	sessions := o.store.Sessions()

	o.renderer.Render(view.SlotSessions, renderSessions(sessions))

	if o.store.Locked() {
		o.renderer.Render(view.SlotLockBanner,
			"An upload session is active. Finalize or cancel it before starting another.")
	} else {
		o.renderer.Clear(view.SlotLockBanner)
	}

	o.mu.Lock()
	remote := append([]session.HistoryEntry(nil), o.history...)
	o.mu.Unlock()
	o.renderer.Render(view.SlotHistory, renderHistory(session.HistorySource(remote, sessions)))
}

func renderSessions(sessions []session.Session) string {
	if len(sessions) == 0 {
		return "No upload sessions."
	}
	var b strings.Builder
	for _, sess := range sessions {
		label := sess.ID
		if sess.Placeholder {
			label = "uploading…"
		}
		fmt.Fprintf(&b, "%s  %s  %d files, %s\n", label, statusLabel(sess.Status),
			sess.FileCount, byteSize(sess.TotalSize))
	}
	return strings.TrimRight(b.String(), "\n")
}

// byteSize formats a server-declared size, clamping negatives to zero
// rather than reinterpreting them as huge unsigned values.
func byteSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func renderHistory(entries []session.HistoryEntry) string {
	if len(entries) == 0 {
		return "No synchronization history yet."
	}
	var b strings.Builder
	for _, entry := range entries {
		line := fmt.Sprintf("%s  %s  %d files", entry.Timestamp().Format("2006-01-02 15:04"),
			statusLabel(entry.Status), entry.FileCount)
		if entry.Error != "" {
			line += "  " + entry.Error
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
