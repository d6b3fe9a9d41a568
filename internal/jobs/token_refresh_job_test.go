package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/service"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"github.com/maheshrc27/socialdeck/pkg/utils"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type tokenUpdate struct {
	id       int64
	oldToken string
	account  models.SocialAccount
}

type memoryAccounts struct {
	mu       sync.Mutex
	accounts []*models.SocialAccount
	listErr  error
	from, to time.Time
	updates  []tokenUpdate
	disabled []int64
}

func (m *memoryAccounts) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	m.from, m.to = initialTime, finalTime
	return m.accounts, m.listErr
}

func (m *memoryAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, tokenUpdate{id: id, oldToken: oldAccessToken, account: *sa})
	return nil
}

func (m *memoryAccounts) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = append(m.disabled, id)
	return nil
}

type refreshingAdapter struct {
	platform string
	err      error
}

func (a *refreshingAdapter) Platform() string { return a.platform }

func (a *refreshingAdapter) Publish(context.Context, *models.SocialAccount, string, []models.MediaRef) (string, error) {
	return "", nil
}

func (a *refreshingAdapter) RefreshToken(ctx context.Context, account *models.SocialAccount) (*transfer.RefreshedToken, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &transfer.RefreshedToken{
		AccessToken:  "new-" + account.RefreshToken,
		RefreshToken: account.RefreshToken,
		ExpiresAt:    now.Add(time.Hour),
	}, nil
}

type publishOnlyAdapter struct{ platform string }

func (a publishOnlyAdapter) Platform() string { return a.platform }

func (a publishOnlyAdapter) Publish(context.Context, *models.SocialAccount, string, []models.MediaRef) (string, error) {
	return "", nil
}

func newJob(store AccountStore, sealer *utils.Sealer, adapters ...service.Adapter) *TokenRefreshJob {
	j := NewTokenRefreshJob(store, service.NewPublisherRegistry(sealer, adapters...))
	j.now = func() time.Time { return now }
	return j
}

func TestRunRefreshesExpiringAccounts(t *testing.T) {
	store := &memoryAccounts{accounts: []*models.SocialAccount{
		{ID: 1, Platform: models.PlatformYoutube, AccessToken: "old-yt", RefreshToken: "yt"},
		{ID: 2, Platform: models.PlatformTiktok, AccessToken: "old-tt", RefreshToken: "tt"},
		{ID: 3, Platform: models.PlatformFacebook, AccessToken: "fb"},
	}}
	j := newJob(store, nil,
		&refreshingAdapter{platform: models.PlatformYoutube},
		&refreshingAdapter{platform: models.PlatformTiktok},
		publishOnlyAdapter{platform: models.PlatformFacebook},
	)

	assert.Equal(t, 2, j.Run(context.Background()))
	assert.Equal(t, now, store.from)
	assert.Equal(t, now.Add(30*time.Minute), store.to)

	require.Len(t, store.updates, 2)
	byID := map[int64]tokenUpdate{}
	for _, u := range store.updates {
		byID[u.id] = u
	}
	assert.Equal(t, "old-yt", byID[1].oldToken)
	assert.Equal(t, "new-yt", byID[1].account.AccessToken)
	require.NotNil(t, byID[1].account.TokenExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *byID[1].account.TokenExpiresAt)
	assert.Equal(t, "new-tt", byID[2].account.AccessToken)
}

func TestRunEncryptsStoredTokens(t *testing.T) {
	sealer, err := utils.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	registry := service.NewPublisherRegistry(sealer)
	sealed, err := registry.Encrypt(&models.SocialAccount{AccessToken: "old", RefreshToken: "rt"})
	require.NoError(t, err)
	sealed.ID = 7
	sealed.Platform = models.PlatformInstagram

	store := &memoryAccounts{accounts: []*models.SocialAccount{sealed}}
	j := newJob(store, sealer, &refreshingAdapter{platform: models.PlatformInstagram})

	assert.Equal(t, 1, j.Run(context.Background()))
	require.Len(t, store.updates, 1)
	u := store.updates[0]
	assert.Equal(t, sealed.AccessToken, u.oldToken)
	assert.NotEqual(t, "new-rt", u.account.AccessToken)

	plain, err := registry.Decrypt(&u.account)
	require.NoError(t, err)
	assert.Equal(t, "new-rt", plain.AccessToken)
}

func TestRunSkipsFailures(t *testing.T) {
	store := &memoryAccounts{accounts: []*models.SocialAccount{
		{ID: 1, Platform: models.PlatformTiktok, AccessToken: "a", RefreshToken: "b"},
	}}
	j := newJob(store, nil, &refreshingAdapter{platform: models.PlatformTiktok, err: errors.New("invalid_grant")})
	assert.Equal(t, 0, j.Run(context.Background()))
	assert.Empty(t, store.updates)
	assert.Empty(t, store.disabled, "a transient failure keeps the account active")

	store = &memoryAccounts{listErr: errors.New("db down")}
	j = newJob(store, nil, &refreshingAdapter{platform: models.PlatformTiktok})
	assert.Equal(t, 0, j.Run(context.Background()))
}

func TestRunDeactivatesRevokedAccounts(t *testing.T) {
	store := &memoryAccounts{accounts: []*models.SocialAccount{
		{ID: 4, Platform: models.PlatformYoutube, AccessToken: "a", RefreshToken: "b"},
		{ID: 5, Platform: models.PlatformTiktok, AccessToken: "c", RefreshToken: "d"},
	}}
	revoked := fmt.Errorf("youtube: %w: invalid_grant", service.ErrTokenRevoked)
	j := newJob(store, nil,
		&refreshingAdapter{platform: models.PlatformYoutube, err: revoked},
		&refreshingAdapter{platform: models.PlatformTiktok},
	)

	assert.Equal(t, 1, j.Run(context.Background()))
	assert.Equal(t, []int64{4}, store.disabled)
	require.Len(t, store.updates, 1)
	assert.Equal(t, int64(5), store.updates[0].id)
}

func TestRegister(t *testing.T) {
	cr := cron.New()
	j := newJob(&memoryAccounts{}, nil)

	id, err := j.Register(cr)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, cr.Entries(), 1)
}
