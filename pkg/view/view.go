// Package view models the shared UI surface as a set of named slots
// written through a narrow rendering interface. Components never reach
// for ambient UI state; they are handed a Renderer and write whole
// slot contents, which keeps every mutation replayable and testable.
package view

// Slot names a region of the workspace UI.
type Slot string

// Workspace view slots.
const (
	SlotSessions      Slot = "sessions"
	SlotLockBanner    Slot = "lock-banner"
	SlotProgress      Slot = "progress"
	SlotHistory       Slot = "history"
	SlotFileTree      Slot = "file-tree"
	SlotViewerTitle   Slot = "viewer-title"
	SlotViewerActions Slot = "viewer-actions"
	SlotViewerBody    Slot = "viewer-body"
)

// Renderer writes content into named view slots. Render replaces the
// slot's entire content; Clear empties it. Implementations must accept
// any slot without erroring so unknown slots degrade silently.
type Renderer interface {
	Render(slot Slot, content string)
	Clear(slot Slot)
}

// Discard is a Renderer that drops everything. Library consumers that
// drive their own UI can use it as a safe default.
type Discard struct{}

// Render implements Renderer.
func (Discard) Render(Slot, string) {}

// Clear implements Renderer.
func (Discard) Clear(Slot) {}
