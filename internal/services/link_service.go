package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
)

// LinkServiceProvider defines the interface for link storage.
type LinkServiceProvider interface {
	CreateLink(ctx context.Context, url, description string, postedByID int64) (models.Link, error)
	GetAllLinks(ctx context.Context) ([]models.Link, error)
	GetLinkByID(ctx context.Context, id int64) (models.Link, error)
}

// LinkService stores links in the relational database.
type LinkService struct {
	db      *sql.DB
	timeout time.Duration
}

// NewLinkService creates a new LinkService.
func NewLinkService(db *sql.DB, timeout time.Duration) *LinkService {
	return &LinkService{db: db, timeout: timeout}
}

const selectLinks = `
	SELECT l.id, l.url, l.description, l.posted_by_id, u.login, l.created_at,
		(SELECT COUNT(*) FROM votes v WHERE v.link_id = l.id)
	FROM links l
	LEFT JOIN users u ON u.id = l.posted_by_id`

func scanLink(scanner interface{ Scan(...interface{}) error }) (models.Link, error) {
	var link models.Link
	var postedBy sql.NullInt64
	var login sql.NullString

	err := scanner.Scan(&link.ID, &link.URL, &link.Description, &postedBy, &login, &link.CreatedAt, &link.VoteCount)
	if err != nil {
		return link, err
	}
	if postedBy.Valid {
		id := postedBy.Int64
		link.PostedByID = &id
	}
	link.PostedByLogin = login.String
	return link, nil
}

// CreateLink inserts a link owned by postedByID and returns it as stored.
func (s *LinkService) CreateLink(ctx context.Context, url, description string, postedByID int64) (models.Link, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO links(url, description, posted_by_id, created_at) VALUES(?, ?, ?, ?)",
		url, description, postedByID, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Link{}, fmt.Errorf("author %d: %w", postedByID, ErrNotFound)
		}
		return models.Link{}, fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Link{}, fmt.Errorf("insert link: %w", err)
	}

	return s.getLink(ctx, id)
}

// GetAllLinks returns every link in insertion order.
func (s *LinkService) GetAllLinks(ctx context.Context) ([]models.Link, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, selectLinks+" ORDER BY l.id")
	if err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}
	return links, nil
}

// GetLinkByID retrieves a single link by id.
func (s *LinkService) GetLinkByID(ctx context.Context, id int64) (models.Link, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.getLink(ctx, id)
}

func (s *LinkService) getLink(ctx context.Context, id int64) (models.Link, error) {
	row := s.db.QueryRowContext(ctx, selectLinks+" WHERE l.id = ?", id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Link{}, fmt.Errorf("link with ID %d: %w", id, ErrNotFound)
		}
		return models.Link{}, fmt.Errorf("select link: %w", err)
	}
	return link, nil
}
