// internal/services/users/store.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jelita/internal/common/database"
	"jelita/internal/models"
)

var (
	ErrUserNotFound  = errors.New("USER_NOT_FOUND")
	ErrUsernameTaken = errors.New("USERNAME_TAKEN")
	ErrDatabaseQuery = errors.New("DATABASE_QUERY_FAILED")
)

type Store interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

const userColumns = `id, username, email, password_hash, nama_lengkap, role, opd_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.NamaLengkap, &u.Role, &u.OPDID,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, nama_lengkap, role, opd_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + userColumns

	out, err := scanUser(s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.NamaLengkap, u.Role, u.OPDID))
	if database.IsUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insert user: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	out, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select user: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}
