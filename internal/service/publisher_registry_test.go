package service

import (
	"context"
	"errors"
	"testing"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAdapter struct {
	mock.Mock
	platform string
}

func (m *mockAdapter) Platform() string {
	return m.platform
}

func (m *mockAdapter) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	args := m.Called(ctx, account, content, media)
	return args.String(0), args.Error(1)
}

type panickyAdapter struct{}

func (panickyAdapter) Platform() string { return models.PlatformLinkedIn }

func (panickyAdapter) Publish(context.Context, *models.SocialAccount, string, []models.MediaRef) (string, error) {
	panic("boom")
}

func newSealer(t *testing.T) *utils.Sealer {
	t.Helper()
	sealer, err := utils.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return sealer
}

func TestRegistryPublishSuccess(t *testing.T) {
	adapter := &mockAdapter{platform: models.PlatformFacebook}
	account := &models.SocialAccount{ID: 7, Platform: models.PlatformFacebook, AccessToken: "tok"}
	adapter.On("Publish", mock.Anything, mock.MatchedBy(func(a *models.SocialAccount) bool {
		return a.AccessToken == "tok"
	}), "hello", []models.MediaRef(nil)).Return("fb_123", nil)

	registry := NewPublisherRegistry(nil, adapter)
	result := registry.Publish(context.Background(), models.PlatformFacebook, account, "hello", nil)

	assert.True(t, result.Success)
	assert.Equal(t, "fb_123", result.PostID)
	assert.Equal(t, int64(7), result.AccountID)
	assert.Empty(t, result.Error)
	adapter.AssertExpectations(t)
}

func TestRegistryPublishAdapterError(t *testing.T) {
	adapter := &mockAdapter{platform: models.PlatformTwitter}
	adapter.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate_limited"))

	registry := NewPublisherRegistry(nil, adapter)
	result := registry.Publish(context.Background(), models.PlatformTwitter, &models.SocialAccount{ID: 1}, "x", nil)

	assert.False(t, result.Success)
	assert.Equal(t, "rate_limited", result.Error)
	assert.Empty(t, result.PostID)
}

func TestRegistryPublishUnknownPlatformAndMissingAccount(t *testing.T) {
	registry := NewPublisherRegistry(nil)

	result := registry.Publish(context.Background(), "myspace", &models.SocialAccount{ID: 1}, "x", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported platform")

	result = registry.Publish(context.Background(), models.PlatformFacebook, nil, "x", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no connected facebook account")
}

func TestRegistryRecoversPanics(t *testing.T) {
	registry := NewPublisherRegistry(nil, panickyAdapter{})

	result := registry.Publish(context.Background(), models.PlatformLinkedIn, &models.SocialAccount{ID: 3}, "x", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panicked")
	assert.Equal(t, models.PlatformLinkedIn, result.Platform)
}

func TestRegistryDecryptsCredentials(t *testing.T) {
	sealer := newSealer(t)
	encrypted, err := sealer.Seal("plain-token")
	require.NoError(t, err)

	adapter := &mockAdapter{platform: models.PlatformFacebook}
	adapter.On("Publish", mock.Anything, mock.MatchedBy(func(a *models.SocialAccount) bool {
		return a.AccessToken == "plain-token" && a.RefreshToken == ""
	}), "hi", mock.Anything).Return("ok", nil)

	stored := &models.SocialAccount{ID: 2, AccessToken: encrypted}
	registry := NewPublisherRegistry(sealer, adapter)
	result := registry.Publish(context.Background(), models.PlatformFacebook, stored, "hi", nil)

	assert.True(t, result.Success)
	assert.Equal(t, encrypted, stored.AccessToken, "stored account is left untouched")

	bad := &models.SocialAccount{ID: 3, AccessToken: "not-base64!"}
	result = registry.Publish(context.Background(), models.PlatformFacebook, bad, "hi", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "credentials")
}

func TestRegistryPlatforms(t *testing.T) {
	registry := NewPublisherRegistry(nil,
		&mockAdapter{platform: models.PlatformTwitter},
		&mockAdapter{platform: models.PlatformFacebook},
	)
	assert.Equal(t, []string{models.PlatformFacebook, models.PlatformTwitter}, registry.Platforms())

	_, ok := registry.Adapter(models.PlatformTwitter)
	assert.True(t, ok)
	_, ok = registry.Adapter(models.PlatformYoutube)
	assert.False(t, ok)
}

func TestRegistryEncryptRoundTrip(t *testing.T) {
	registry := NewPublisherRegistry(newSealer(t))

	sealed, err := registry.Encrypt(&models.SocialAccount{AccessToken: "access", RefreshToken: "refresh"})
	require.NoError(t, err)
	assert.NotEqual(t, "access", sealed.AccessToken)
	assert.Empty(t, sealed.TokenSecret)

	plain, err := registry.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "access", plain.AccessToken)
	assert.Equal(t, "refresh", plain.RefreshToken)

	clear, err := NewPublisherRegistry(nil).Encrypt(&models.SocialAccount{AccessToken: "access"})
	require.NoError(t, err)
	assert.Equal(t, "access", clear.AccessToken)
}
