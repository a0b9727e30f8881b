package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
)

// StatsServiceProvider defines the interface for aggregate counts.
type StatsServiceProvider interface {
	GetStats(ctx context.Context) (models.Stats, error)
}

// StatsService reads row counts from the relational database.
type StatsService struct {
	db      *sql.DB
	timeout time.Duration
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB, timeout time.Duration) *StatsService {
	return &StatsService{db: db, timeout: timeout}
}

// GetStats counts links, users and votes in one query.
func (s *StatsService) GetStats(ctx context.Context) (models.Stats, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var stats models.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM links),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM votes)`).Scan(&stats.Links, &stats.Users, &stats.Votes)
	if err != nil {
		return models.Stats{}, fmt.Errorf("select stats: %w", err)
	}
	return stats, nil
}
