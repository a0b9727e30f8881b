package models

import "time"

// Link is a submitted item. PostedByLogin and VoteCount are filled by
// reads that join users and votes; they are not stored on the row.
type Link struct {
	ID            int64
	URL           string
	Description   string
	PostedByID    *int64 // Nullable for links without an author
	PostedByLogin string
	VoteCount     int
	CreatedAt     time.Time
}
