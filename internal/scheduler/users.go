package scheduler

import (
	"context"

	"github.com/maheshrc27/socialdeck/internal/models"
)

// UserResolver says whose posts a scan cycle should look at.
type UserResolver interface {
	CurrentUsers(ctx context.Context) ([]int64, error)
}

type UserLister interface {
	ListUserIDsByStatus(ctx context.Context, status models.PostStatus) ([]int64, error)
}

type scheduledUsers struct {
	store UserLister
}

// ScheduledUsers resolves every user that currently has scheduled posts.
func ScheduledUsers(store UserLister) UserResolver {
	return &scheduledUsers{store: store}
}

func (r *scheduledUsers) CurrentUsers(ctx context.Context) ([]int64, error) {
	return r.store.ListUserIDsByStatus(ctx, models.PostStatusScheduled)
}

type fixedUser int64

// FixedUser pins the engine to one account owner. Zero means nobody is signed
// in and every cycle is skipped.
func FixedUser(userID int64) UserResolver {
	return fixedUser(userID)
}

func (u fixedUser) CurrentUsers(context.Context) ([]int64, error) {
	if u == 0 {
		return nil, nil
	}
	return []int64{int64(u)}, nil
}

// NewUserResolver picks FixedUser when a user id is configured, ScheduledUsers otherwise.
func NewUserResolver(store UserLister, userID int64) UserResolver {
	if userID != 0 {
		return FixedUser(userID)
	}
	return ScheduledUsers(store)
}
