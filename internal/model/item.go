package model

import (
	"time"

	"github.com/google/uuid"
)

// PlaceholderPreview is the shared preview handle for items whose format
// cannot be previewed directly. It is never released.
const PlaceholderPreview = "static:placeholder"

// SourceFile is the raw payload accepted at ingestion.
type SourceFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"` // declared by the client, may be empty
	Data        []byte `json:"-"`
}

// QueueItem represents one file awaiting or undergoing conversion.
type QueueItem struct {
	ID          uuid.UUID  `json:"id"`
	Source      SourceFile `json:"source"`
	DisplayName string     `json:"display_name"` // unique within the queue
	Status      Status     `json:"status"`       // pending / converting / completed / error
	Preview     string     `json:"-"`
	AddedAt     time.Time  `json:"added_at"`
}

// Archive is a packaged export result ready to be handed to the user.
type Archive struct {
	Name    string   `json:"name"`
	Data    []byte   `json:"-"`
	Entries []string `json:"entries"`
}

// ProgressState reports the state of the current or last export run.
type ProgressState struct {
	Percent   int       `json:"percent"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	RunStatus RunStatus `json:"run_status"`
}
