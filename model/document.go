package model

import "time"

// Document is a unit of ingested content before chunking. Parsing binary
// formats into text happens outside this module; Content is already plain text.
type Document struct {
	Source    string    `json:"source"` // File name or logical identifier
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
