package models

import "time"

// Vote records that a user voted for a link. At most one per (UserID, LinkID).
type Vote struct {
	ID        int64
	UserID    int64
	LinkID    int64
	CreatedAt time.Time
}
