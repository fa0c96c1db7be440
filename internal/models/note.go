package models

import "time"

// NoteStatus tracks how well the owner understands a note.
type NoteStatus string

const (
	NotePending    NoteStatus = "Pending"
	NoteUnderstood NoteStatus = "Understood"
	NoteRevisit    NoteStatus = "Revisit"
)

// Valid reports whether s is one of the known statuses.
func (s NoteStatus) Valid() bool {
	switch s {
	case NotePending, NoteUnderstood, NoteRevisit:
		return true
	}
	return false
}

// Attachment is a file stored alongside a note.
type Attachment struct {
	// Format is the inferred file extension without the dot ("pdf", "png").
	Format string `json:"format"`
	// URL is the public location of the stored file.
	URL string `json:"url"`
	// Key identifies the file in the blob store.
	Key string `json:"-"`
}

// Note is a text note with optional attachments.
type Note struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Subject     string       `json:"subject"`
	Status      NoteStatus   `json:"status"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
