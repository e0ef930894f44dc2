package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/infopanel-api/internal/models"
)

// UsersSchema creates the operator accounts table.
const UsersSchema = `CREATE TABLE IF NOT EXISTS users (
	user_id       BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE
)`

// UserRepository loads operator accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns sql.ErrNoRows when the account does not exist.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT user_id, username, password_hash, is_admin FROM users WHERE username = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent inserts the account unless the username is taken.
// It reports whether a row was written.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	const query = `INSERT INTO users (username, password_hash, is_admin) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.IsAdmin)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
