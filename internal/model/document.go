package model

import "time"

// Document maps a public username to an optional stored PDF.
// This is a pure domain model with no database-specific dependencies or tags.
// Filename and OriginalFilename are empty while the username is only reserved.
type Document struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Filename         string    `json:"filename,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasPDF reports whether a file is attached to the username.
func (d Document) HasPDF() bool {
	return d.Filename != ""
}
