package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infopanel-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "username", "password_hash", "is_admin"}).
		AddRow(1, "admin", "hash", true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, username, password_hash, is_admin FROM users WHERE username = $1")).
		WithArgs("admin").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserID)
	assert.True(t, user.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "password_hash", "is_admin"}))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateIfAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, password_hash, is_admin) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING")).
		WithArgs("admin", "hash", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateIfAbsent(context.Background(), &models.User{Username: "admin", PasswordHash: "hash", IsAdmin: true})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
