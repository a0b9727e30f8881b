package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
)

// VoteServiceProvider defines the interface for vote storage.
type VoteServiceProvider interface {
	CreateVote(ctx context.Context, userID, linkID int64) (models.Vote, error)
	VoteExists(ctx context.Context, userID, linkID int64) (bool, error)
}

// VoteService stores votes in the relational database.
type VoteService struct {
	db      *sql.DB
	timeout time.Duration
}

// NewVoteService creates a new VoteService.
func NewVoteService(db *sql.DB, timeout time.Duration) *VoteService {
	return &VoteService{db: db, timeout: timeout}
}

// CreateVote inserts a vote. The (user_id, link_id) unique constraint makes
// a duplicate fail with ErrConflict even under concurrent calls; a missing
// user or link fails with ErrNotFound.
func (s *VoteService) CreateVote(ctx context.Context, userID, linkID int64) (models.Vote, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	vote := models.Vote{UserID: userID, LinkID: linkID, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO votes(user_id, link_id, created_at) VALUES(?, ?, ?)",
		vote.UserID, vote.LinkID, vote.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Vote{}, fmt.Errorf("vote by user %d on link %d: %w", userID, linkID, ErrConflict)
		case isForeignKeyViolation(err):
			return models.Vote{}, fmt.Errorf("vote by user %d on link %d: %w", userID, linkID, ErrNotFound)
		}
		return models.Vote{}, fmt.Errorf("insert vote: %w", err)
	}

	vote.ID, err = res.LastInsertId()
	if err != nil {
		return models.Vote{}, fmt.Errorf("insert vote: %w", err)
	}
	return vote, nil
}

// VoteExists reports whether userID has already voted for linkID.
func (s *VoteService) VoteExists(ctx context.Context, userID, linkID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM votes WHERE user_id = ? AND link_id = ?)", userID, linkID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select vote: %w", err)
	}
	return exists, nil
}
