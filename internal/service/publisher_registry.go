package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"github.com/maheshrc27/socialdeck/pkg/utils"
)

// Adapter publishes content to a single platform. Implementations receive the
// account with decrypted credentials and return the platform's id for the new post.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error)
}

// ErrTokenRevoked is returned by RefreshToken when the platform no longer
// accepts the stored grant; the account needs to be connected again.
var ErrTokenRevoked = errors.New("token revoked by platform")

// TokenRefresher is implemented by adapters whose platform issues short-lived
// access tokens that can be renewed with a refresh token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, account *models.SocialAccount) (*transfer.RefreshedToken, error)
}

type PublisherRegistry interface {
	Publish(ctx context.Context, platform string, account *models.SocialAccount, content string, media []models.MediaRef) models.PublishResult
	Adapter(platform string) (Adapter, bool)
	Platforms() []string
	Decrypt(account *models.SocialAccount) (*models.SocialAccount, error)
	Encrypt(account *models.SocialAccount) (*models.SocialAccount, error)
}

type publisherRegistry struct {
	sealer   *utils.Sealer
	adapters map[string]Adapter
}

// NewPublisherRegistry indexes adapters by platform id. A nil sealer means
// credentials are stored in the clear.
func NewPublisherRegistry(sealer *utils.Sealer, adapters ...Adapter) PublisherRegistry {
	r := &publisherRegistry{
		sealer:   sealer,
		adapters: make(map[string]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *publisherRegistry) Adapter(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

func (r *publisherRegistry) Platforms() []string {
	platforms := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// Publish never fails: every problem, a panicking adapter included, becomes an
// unsuccessful result.
func (r *publisherRegistry) Publish(ctx context.Context, platform string, account *models.SocialAccount, content string, media []models.MediaRef) (result models.PublishResult) {
	result.Platform = platform

	if account == nil {
		result.Error = fmt.Sprintf("no connected %s account", platform)
		return result
	}
	result.AccountID = account.ID

	adapter, ok := r.adapters[platform]
	if !ok {
		result.Error = fmt.Sprintf("unsupported platform: %s", platform)
		return result
	}

	plain, err := r.Decrypt(account)
	if err != nil {
		result.Error = fmt.Sprintf("could not read %s credentials: %v", platform, err)
		return result
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("publisher panicked", "platform", platform, "panic", rec, "stack", string(debug.Stack()))
			result.Success = false
			result.PostID = ""
			result.Error = fmt.Sprintf("%s publisher panicked: %v", platform, rec)
		}
	}()

	externalID, err := adapter.Publish(ctx, plain, content, media)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PostID = externalID
	return result
}

// Decrypt returns a copy of account with its stored credentials decrypted.
func (r *publisherRegistry) Decrypt(account *models.SocialAccount) (*models.SocialAccount, error) {
	plain := *account
	if r.sealer == nil {
		return &plain, nil
	}

	var err error
	if plain.AccessToken, err = r.sealer.Open(account.AccessToken); err != nil {
		return nil, err
	}
	if plain.RefreshToken, err = r.sealer.Open(account.RefreshToken); err != nil {
		return nil, err
	}
	if plain.TokenSecret, err = r.sealer.Open(account.TokenSecret); err != nil {
		return nil, err
	}
	return &plain, nil
}

// Encrypt is the inverse of Decrypt, used before credentials are stored.
func (r *publisherRegistry) Encrypt(account *models.SocialAccount) (*models.SocialAccount, error) {
	sealed := *account
	if r.sealer == nil {
		return &sealed, nil
	}

	var err error
	if sealed.AccessToken, err = r.sealer.Seal(account.AccessToken); err != nil {
		return nil, err
	}
	if sealed.RefreshToken, err = r.sealer.Seal(account.RefreshToken); err != nil {
		return nil, err
	}
	if sealed.TokenSecret, err = r.sealer.Seal(account.TokenSecret); err != nil {
		return nil, err
	}
	return &sealed, nil
}
