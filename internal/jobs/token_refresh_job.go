package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/service"
	"github.com/maheshrc27/socialdeck/pkg/utils"
	"github.com/robfig/cron/v3"
)

const (
	RefreshSchedule  = "@every 10m"
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

// AccountStore is the part of the social account repository the job needs.
type AccountStore interface {
	ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error
	Deactivate(ctx context.Context, id int64) error
}

// Credentials seals and unseals stored tokens and finds the platform adapter.
type Credentials interface {
	Adapter(platform string) (service.Adapter, bool)
	Decrypt(account *models.SocialAccount) (*models.SocialAccount, error)
	Encrypt(account *models.SocialAccount) (*models.SocialAccount, error)
}

// TokenRefreshJob renews access tokens that are about to expire so that the
// scheduler keeps treating their accounts as usable.
type TokenRefreshJob struct {
	sr  AccountStore
	reg Credentials
	now func() time.Time
}

func NewTokenRefreshJob(sr AccountStore, reg Credentials) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:  sr,
		reg: reg,
		now: utils.NowInstant,
	}
}

// Register adds the job to c on its fixed schedule.
func (c *TokenRefreshJob) Register(cr *cron.Cron) (cron.EntryID, error) {
	return cr.AddFunc(RefreshSchedule, c.RefreshTokens)
}

func (c *TokenRefreshJob) RefreshTokens() {
	c.Run(context.Background())
}

// Run refreshes every account expiring within the window and returns how many
// were renewed.
func (c *TokenRefreshJob) Run(ctx context.Context) int {
	currentTime := c.now()
	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, currentTime.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var wg sync.WaitGroup
	var refreshed atomic.Int64
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		adapter, ok := c.reg.Adapter(acc.Platform)
		if !ok {
			continue
		}
		refresher, ok := adapter.(service.TokenRefresher)
		if !ok {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refresh(ctx, refresher, acc); err != nil {
				slog.Warn("unable to refresh token", "platform", acc.Platform, "account_id", acc.ID, "error", err)
				return
			}
			refreshed.Add(1)
		}(acc)
	}
	wg.Wait()

	n := int(refreshed.Load())
	if len(accounts) > 0 {
		slog.Info("token refresh finished", "expiring", len(accounts), "refreshed", n)
	}
	return n
}

func (c *TokenRefreshJob) refresh(ctx context.Context, refresher service.TokenRefresher, stored *models.SocialAccount) error {
	plain, err := c.reg.Decrypt(stored)
	if err != nil {
		return err
	}

	token, err := refresher.RefreshToken(ctx, plain)
	if errors.Is(err, service.ErrTokenRevoked) {
		// the scheduler stops picking the account until it is reconnected
		slog.Warn("token revoked, deactivating account", "platform", stored.Platform, "account_id", stored.ID)
		if derr := c.sr.Deactivate(ctx, stored.ID); derr != nil {
			return fmt.Errorf("%w (deactivate failed: %v)", err, derr)
		}
		return err
	}
	if err != nil {
		return err
	}

	update := &models.SocialAccount{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt.UTC()
		update.TokenExpiresAt = &expiresAt
	}

	sealed, err := c.reg.Encrypt(update)
	if err != nil {
		return err
	}
	return c.sr.SetToken(ctx, stored.ID, stored.AccessToken, sealed)
}
