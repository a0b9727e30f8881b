package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
)

// UserServiceProvider defines the interface for user storage.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, login, passwordHash string) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// UserService stores users in the relational database.
type UserService struct {
	db      *sql.DB
	timeout time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, timeout time.Duration) *UserService {
	return &UserService{db: db, timeout: timeout}
}

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.Login, &user.PasswordHash, &user.CreatedAt)
	return user, err
}

// CreateUser inserts a user with an already hashed password. A taken login
// yields ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, login, passwordHash string) (models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user := models.User{
		Login:        login,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users(login, password_hash, created_at) VALUES(?, ?, ?)",
		user.Login, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %q: %w", login, ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUserByLogin retrieves a user by login, including the password hash.
func (s *UserService) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, "SELECT id, login, password_hash, created_at FROM users WHERE login = ?", login)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with login %q: %w", login, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a single user by id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, "SELECT id, login, password_hash, created_at FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}
