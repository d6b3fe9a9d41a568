package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
)

const instagramGraphURL = "https://graph.instagram.com"

// graphInvalidTokenCode is the Graph API OAuthException code for an expired or revoked token.
const graphInvalidTokenCode = 190

type instagramPublisher struct {
	baseURL      string
	version      string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
}

func NewInstagramPublisher(graphVersion string, client *http.Client) Adapter {
	return NewInstagramPublisherWithBaseURL(instagramGraphURL, graphVersion, client, 5*time.Second)
}

func NewInstagramPublisherWithBaseURL(baseURL, graphVersion string, client *http.Client, pollInterval time.Duration) Adapter {
	return &instagramPublisher{
		baseURL:      baseURL,
		version:      graphVersion,
		client:       client,
		pollInterval: pollInterval,
		pollAttempts: 60,
	}
}

func (p *instagramPublisher) Platform() string {
	return models.PlatformInstagram
}

func (p *instagramPublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	if len(media) == 0 {
		return "", errors.New("instagram: a post needs at least one image or video")
	}

	var containerID string
	var err error
	if len(media) == 1 {
		containerID, err = p.createContainer(ctx, account, media[0], content, false)
	} else {
		containerID, err = p.createCarousel(ctx, account, media, content)
	}
	if err != nil {
		return "", err
	}

	if err := p.waitUntilReady(ctx, account, containerID); err != nil {
		return "", err
	}

	return p.publishContainer(ctx, account, containerID)
}

func (p *instagramPublisher) mediaURL(account *models.SocialAccount, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", p.baseURL, p.version, url.PathEscape(account.AccountID), edge)
}

func (p *instagramPublisher) createContainer(ctx context.Context, account *models.SocialAccount, m models.MediaRef, caption string, carouselItem bool) (string, error) {
	data := url.Values{}
	data.Set("access_token", account.AccessToken)
	if m.IsVideo() {
		data.Set("media_type", "REELS")
		data.Set("video_url", m.URL)
	} else {
		data.Set("image_url", m.URL)
	}
	if carouselItem {
		data.Set("is_carousel_item", "true")
	} else {
		data.Set("caption", caption)
	}

	return p.postForID(ctx, p.mediaURL(account, "media"), data)
}

func (p *instagramPublisher) createCarousel(ctx context.Context, account *models.SocialAccount, media []models.MediaRef, caption string) (string, error) {
	children := make([]string, 0, len(media))
	for _, m := range media {
		id, err := p.createContainer(ctx, account, m, "", true)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	data := url.Values{}
	data.Set("access_token", account.AccessToken)
	data.Set("media_type", "CAROUSEL")
	data.Set("caption", caption)
	data.Set("children", strings.Join(children, ","))

	return p.postForID(ctx, p.mediaURL(account, "media"), data)
}

// waitUntilReady polls the container until Instagram has fetched and processed the media.
func (p *instagramPublisher) waitUntilReady(ctx context.Context, account *models.SocialAccount, containerID string) error {
	endpoint := fmt.Sprintf("%s/%s/%s", p.baseURL, p.version, url.PathEscape(containerID))
	data := url.Values{}
	data.Set("fields", "status_code")
	data.Set("access_token", account.AccessToken)

	for attempt := 0; attempt < p.pollAttempts; attempt++ {
		body, err := sendForm(ctx, p.client, p.Platform(), http.MethodGet, endpoint, data)
		if err != nil {
			return graphError(body, err)
		}

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("instagram: error parsing container status: %w", err)
		}

		switch status.StatusCode {
		case "", "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("instagram: media container %s", strings.ToLower(status.StatusCode))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	return errors.New("instagram: media was not ready in time")
}

func (p *instagramPublisher) publishContainer(ctx context.Context, account *models.SocialAccount, containerID string) (string, error) {
	data := url.Values{}
	data.Set("creation_id", containerID)
	data.Set("access_token", account.AccessToken)

	id, err := p.postForID(ctx, p.mediaURL(account, "media_publish"), data)
	if err != nil {
		return "", err
	}
	slog.Info("instagram media published", "account_id", account.ID, "media_id", id)
	return id, nil
}

func (p *instagramPublisher) postForID(ctx context.Context, endpoint string, data url.Values) (string, error) {
	body, err := sendForm(ctx, p.client, p.Platform(), http.MethodPost, endpoint, data)
	if err != nil {
		return "", graphError(body, err)
	}

	var result transfer.GraphIDResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("instagram: error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("instagram: no media id returned")
	}
	return result.ID, nil
}

// RefreshToken extends a long-lived Instagram token. Instagram uses the access
// token itself as the refresh credential.
func (p *instagramPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) (*transfer.RefreshedToken, error) {
	data := url.Values{}
	data.Set("grant_type", "ig_refresh_token")
	data.Set("access_token", account.AccessToken)

	body, err := sendForm(ctx, p.client, p.Platform(), http.MethodGet, p.baseURL+"/refresh_access_token", data)
	if err != nil {
		var ge transfer.GraphErrorResponse
		if json.Unmarshal(body, &ge) == nil && ge.Error.Code == graphInvalidTokenCode {
			return nil, fmt.Errorf("instagram: %w: %s", ErrTokenRevoked, ge.Error.Message)
		}
		return nil, graphError(body, err)
	}

	var result transfer.InstagramRefreshResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("instagram: failed to decode refresh response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, errors.New("instagram: refresh returned no token")
	}

	return &transfer.RefreshedToken{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    GetExpiresAt(int(result.ExpiresIn)),
	}, nil
}
