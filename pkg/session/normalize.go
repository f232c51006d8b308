package session

import "time"

// Normalize converts a loosely-shaped server payload into a canonical
// Session record. It is pure and total: a payload without a session_id
// yields nil, and any other malformed field degrades to the most
// conservative default rather than failing the flow.
//
// FileCount falls back to counting an embedded "files" list, TotalSize
// to summing sizes from that list, Status to "pending", and the
// timestamps to the current time when absent or unparseable.
func Normalize(raw map[string]any) *Session {
	if raw == nil {
		return nil
	}
	id := stringField(raw, "session_id")
	if id == "" {
		return nil
	}

	files := listField(raw, "files")

	fileCount := intField(raw, "file_count")
	if fileCount == 0 {
		fileCount = len(files)
	}

	totalSize := int64Field(raw, "total_size")
	if totalSize == 0 {
		for _, f := range files {
			entry, ok := f.(map[string]any)
			if !ok {
				continue
			}
			totalSize += int64Field(entry, "size")
		}
	}

	status := Status(stringField(raw, "status"))
	if status == "" {
		status = StatusPending
	}

	typ := Type(stringField(raw, "type"))
	if typ == "" {
		typ = Type(stringField(raw, "upload_type"))
	}
	if typ == "" {
		typ = TypeZip
	}

	now := time.Now().UTC()
	createdAt := timeField(raw, "created_at", now)
	updatedAt := timeField(raw, "updated_at", createdAt)

	sess := &Session{
		ID:        id,
		Status:    status,
		Type:      typ,
		FileCount: fileCount,
		TotalSize: totalSize,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Error:     stringField(raw, "error"),
	}
	if finalized := timeField(raw, "finalized_at", time.Time{}); !finalized.IsZero() {
		sess.FinalizedAt = &finalized
	}
	return sess
}

func stringField(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return v
}

// intField tolerates the numeric types encoding/json may produce as
// well as values that were already typed by a caller.
func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func int64Field(raw map[string]any, key string) int64 {
	switch v := raw[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

func listField(raw map[string]any, key string) []any {
	v, _ := raw[key].([]any)
	return v
}

func timeField(raw map[string]any, key string, fallback time.Time) time.Time {
	s, ok := raw[key].(string)
	if !ok || s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
