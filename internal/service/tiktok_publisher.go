package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
)

const tiktokAPIURL = "https://open.tiktokapis.com"

type tiktokPublisher struct {
	baseURL      string
	clientKey    string
	clientSecret string
	client       *http.Client
}

func NewTiktokPublisher(clientKey, clientSecret string, client *http.Client) Adapter {
	return NewTiktokPublisherWithBaseURL(tiktokAPIURL, clientKey, clientSecret, client)
}

func NewTiktokPublisherWithBaseURL(baseURL, clientKey, clientSecret string, client *http.Client) Adapter {
	return &tiktokPublisher{
		baseURL:      baseURL,
		clientKey:    clientKey,
		clientSecret: clientSecret,
		client:       client,
	}
}

func (p *tiktokPublisher) Platform() string {
	return models.PlatformTiktok
}

func (p *tiktokPublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	if len(media) == 0 {
		return "", errors.New("tiktok: a post needs a video or photos")
	}

	if err := p.queryCreatorInfo(ctx, account.AccessToken); err != nil {
		return "", err
	}

	if media[0].IsVideo() {
		return p.postVideo(ctx, account.AccessToken, content, media[0])
	}
	return p.postPhotos(ctx, account.AccessToken, content, media)
}

func (p *tiktokPublisher) postVideo(ctx context.Context, accessToken, caption string, video models.MediaRef) (string, error) {
	payload := transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:                 caption,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: video.URL,
		},
	}
	return p.initPublish(ctx, accessToken, "/v2/post/publish/video/init/", payload)
}

func (p *tiktokPublisher) postPhotos(ctx context.Context, accessToken, caption string, media []models.MediaRef) (string, error) {
	photos := make([]string, 0, len(media))
	for _, m := range media {
		if m.IsVideo() {
			continue
		}
		photos = append(photos, m.URL)
	}

	payload := transfer.PhotoUploadRequest{
		PostInfo: transfer.PhotoPostInfo{
			Title:        caption,
			Description:  caption,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
			AutoAddMusic: true,
		},
		SourceInfo: transfer.PhotoSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: photos,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}
	return p.initPublish(ctx, accessToken, "/v2/post/publish/content/init/", payload)
}

func (p *tiktokPublisher) initPublish(ctx context.Context, accessToken, path string, payload any) (string, error) {
	body, err := sendJSON(ctx, p.client, p.Platform(), http.MethodPost, p.baseURL+path, bearer(accessToken), payload)

	var result transfer.TikTokUploadResponse
	if len(body) > 0 {
		if jerr := json.Unmarshal(body, &result); jerr != nil && err == nil {
			return "", fmt.Errorf("tiktok: error parsing response: %w", jerr)
		}
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Message = result.Error.Message
		}
		return "", err
	}
	if !result.Error.OK() {
		return "", fmt.Errorf("tiktok: %s", result.Error.Message)
	}
	if result.Data.PublishID == "" {
		return "", errors.New("tiktok: no publish id returned")
	}
	return result.Data.PublishID, nil
}

func (p *tiktokPublisher) queryCreatorInfo(ctx context.Context, accessToken string) error {
	body, err := sendJSON(ctx, p.client, p.Platform(), http.MethodPost, p.baseURL+"/v2/post/publish/creator_info/query/", bearer(accessToken), nil)
	if err == nil {
		return nil
	}

	var result struct {
		Error transfer.TiktokError `json:"error"`
	}
	var apiErr *APIError
	if json.Unmarshal(body, &result) == nil && errors.As(err, &apiErr) {
		apiErr.Message = result.Error.Message
	}
	return fmt.Errorf("error querying creator info: %w", err)
}

func (p *tiktokPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) (*transfer.RefreshedToken, error) {
	if account.RefreshToken == "" {
		return nil, errors.New("tiktok: account has no refresh token")
	}

	data := url.Values{}
	data.Set("client_key", p.clientKey)
	data.Set("client_secret", p.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", account.RefreshToken)

	body, err := sendForm(ctx, p.client, p.Platform(), http.MethodPost, p.baseURL+"/v2/oauth/token/", data)

	var tokenResponse transfer.TiktokTokenResponse
	if len(body) > 0 {
		if jsonErr := json.Unmarshal(body, &tokenResponse); jsonErr != nil && err == nil {
			return nil, jsonErr
		}
	}
	if tokenResponse.Error == "invalid_grant" {
		return nil, fmt.Errorf("tiktok: %w: %s", ErrTokenRevoked, tokenResponse.ErrorDescription)
	}
	if err != nil {
		return nil, err
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("tiktok: refresh failed: %s", tokenResponse.ErrorDescription)
	}

	return &transfer.RefreshedToken{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    GetExpiresAt(tokenResponse.ExpiresIn),
	}, nil
}

func bearer(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}
