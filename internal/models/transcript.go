package models

import "time"

type TranscriptRole string

const (
	RoleSystem    TranscriptRole = "system"
	RoleAssistant TranscriptRole = "assistant"
	RoleUser      TranscriptRole = "user"
	RoleRules     TranscriptRole = "rules"
)

type TranscriptEntry struct {
	Role      TranscriptRole    `json:"role"`
	Text      string            `json:"text"`
	Redacted  bool              `json:"redacted,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Transcript is append-only; entries are never removed.
type Transcript struct {
	SessionID string            `json:"sessionId"`
	Items     []TranscriptEntry `json:"items"`
}
