package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTokenGuardedByOldToken(t *testing.T) {
	db, mock := newMock(t)
	update := &models.SocialAccount{AccessToken: "new", RefreshToken: ""}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND access_token = $2")).
		WithArgs(int64(4), "old", "new", "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND access_token = $2")).
		WithArgs(int64(4), "old", "new", "", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewSocialAccountRepository(db)
	require.NoError(t, repo.SetToken(context.Background(), 4, "old", update))
	assert.Error(t, repo.SetToken(context.Background(), 4, "old", update), "token already rotated")
}

func TestDeactivate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE social_accounts SET is_active = FALSE")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSocialAccountRepository(db).Deactivate(context.Background(), 9))
}
