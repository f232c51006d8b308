package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleSink writes styled notifications to a terminal.
type ConsoleSink struct {
	w      io.Writer
	styles map[Level]lipgloss.Style
}

// NewConsoleSink creates a terminal notification sink.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		w: w,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
			LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
			LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		},
	}
}

// Notify implements Sink.
func (s *ConsoleSink) Notify(level Level, message string) {
	style, ok := s.styles[level]
	if !ok {
		style = s.styles[LevelInfo]
	}
	fmt.Fprintln(s.w, style.Render(fmt.Sprintf("[%s] %s", level, message)))
}
