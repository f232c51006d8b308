package session

import "time"

// HistoryEntry is a terminal synchronization record produced by the
// server. The client never mutates history entries, only renders them.
type HistoryEntry struct {
	Status      Status    `json:"status"`
	FileCount   int       `json:"file_count"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
	Error       string    `json:"error,omitempty"`
}

// Timestamp returns the display timestamp for the entry, preferring
// the completion time.
func (e HistoryEntry) Timestamp() time.Time {
	if !e.CompletedAt.IsZero() {
		return e.CompletedAt
	}
	return e.CreatedAt
}

// NormalizeHistoryEntry converts a loosely-shaped server history
// record into a HistoryEntry. Like Normalize it is total: malformed
// fields degrade to zero values.
func NormalizeHistoryEntry(raw map[string]any) HistoryEntry {
	return HistoryEntry{
		Status:      Status(stringField(raw, "status")),
		FileCount:   intField(raw, "file_count"),
		CompletedAt: timeField(raw, "completed_at", time.Time{}),
		CreatedAt:   timeField(raw, "created_at", time.Time{}),
		Error:       stringField(raw, "error"),
	}
}

// HistorySource selects the records to render in the history panel.
// When the server supplies explicit history it is used as-is;
// otherwise terminal sessions are converted so the panel always has a
// non-empty source once any session has ever been created.
func HistorySource(history []HistoryEntry, sessions []Session) []HistoryEntry {
	if len(history) > 0 {
		return history
	}
	var derived []HistoryEntry
	for _, sess := range sessions {
		if sess.Placeholder {
			continue
		}
		derived = append(derived, HistoryEntry{
			Status:      sess.Status,
			FileCount:   sess.FileCount,
			CompletedAt: sess.UpdatedAt,
			CreatedAt:   sess.CreatedAt,
			Error:       sess.Error,
		})
	}
	return derived
}
