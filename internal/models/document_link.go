package models

import "time"

// LinkStatus enumerates the lifecycle states of a document link.
type LinkStatus string

const (
	// LinkStatusPending is the initial state of every link.
	LinkStatusPending LinkStatus = "pending"
	// LinkStatusCompleted is reached when the client uploads the signed
	// counterpart document. Terminal.
	LinkStatusCompleted LinkStatus = "completed"
	// LinkStatusExpired is reached lazily when an access attempt observes the
	// deadline in the past. Terminal.
	LinkStatusExpired LinkStatus = "expired"
)

// Valid reports whether the status is one of the known states.
func (s LinkStatus) Valid() bool {
	switch s {
	case LinkStatusPending, LinkStatusCompleted, LinkStatusExpired:
		return true
	}
	return false
}

// DocumentLink is a single-client, password-protected sharing link through
// which an external party views a reference document and uploads a completed
// counterpart. The token is the only public addressing key; the password hash
// is never serialized.
type DocumentLink struct {
	ID                  string     `db:"id" json:"id"`
	Title               string     `db:"title" json:"title"`
	Description         string     `db:"description" json:"description,omitempty"`
	ClientName          string     `db:"client_name" json:"client_name,omitempty"`
	ClientEmail         string     `db:"client_email" json:"client_email,omitempty"`
	UniqueToken         string     `db:"unique_token" json:"unique_token"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	DocumentURL         *string    `db:"document_url" json:"document_url,omitempty"`
	UploadedDocumentURL *string    `db:"uploaded_document_url" json:"uploaded_document_url,omitempty"`
	Status              LinkStatus `db:"status" json:"status"`
	ExpiresAt           *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	AccessedAt          *time.Time `db:"accessed_at" json:"accessed_at,omitempty"`
	CompletedAt         *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedBy           *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// LinkFilter captures filtering criteria for listing document links.
type LinkFilter struct {
	Status *LinkStatus
	Search string
	Limit  int
	Offset int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"total_count"`
}
