package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console renders view slots as titled blocks on a terminal. Each
// Render prints the slot's new content; Clear prints nothing. It is
// safe for concurrent use since the poller renders from its own
// goroutine.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	title lipgloss.Style
}

// NewConsole creates a terminal slot renderer.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:     w,
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105")),
	}
}

// Render implements Renderer.
func (c *Console) Render(slot Slot, content string) {
	if content == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s\n%s\n", c.title.Render("── "+string(slot)+" ──"), content)
}

// Clear implements Renderer.
func (c *Console) Clear(Slot) {}

// Memory records the latest content per slot. It backs tests and
// embedding consumers that want to read slot state back.
type Memory struct {
	mu    sync.Mutex
	slots map[Slot]string
}

// NewMemory creates an in-memory slot renderer.
func NewMemory() *Memory {
	return &Memory{slots: make(map[Slot]string)}
}

// Render implements Renderer.
func (m *Memory) Render(slot Slot, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = content
}

// Clear implements Renderer.
func (m *Memory) Clear(slot Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
}

// Get returns the current content of a slot.
func (m *Memory) Get(slot Slot) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slot]
}
