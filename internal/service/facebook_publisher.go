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

const facebookGraphURL = "https://graph.facebook.com"

type facebookPublisher struct {
	baseURL string
	client  *http.Client
}

// NewFacebookPublisher posts to a page. The account's AccountID is the page id
// and its access token a page token.
func NewFacebookPublisher(graphVersion string, client *http.Client) Adapter {
	return NewFacebookPublisherWithBaseURL(facebookGraphURL+"/"+graphVersion, client)
}

func NewFacebookPublisherWithBaseURL(baseURL string, client *http.Client) Adapter {
	return &facebookPublisher{baseURL: baseURL, client: client}
}

func (p *facebookPublisher) Platform() string {
	return models.PlatformFacebook
}

func (p *facebookPublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	if account.AccountID == "" {
		return "", errors.New("facebook: account has no page id")
	}

	data := url.Values{}
	data.Set("access_token", account.AccessToken)

	edge := "feed"
	switch {
	case len(media) == 0:
		data.Set("message", content)
	case media[0].IsVideo():
		edge = "videos"
		data.Set("file_url", media[0].URL)
		data.Set("description", content)
	default:
		edge = "photos"
		data.Set("url", media[0].URL)
		data.Set("caption", content)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", p.baseURL, url.PathEscape(account.AccountID), edge)
	body, err := sendForm(ctx, p.client, p.Platform(), http.MethodPost, endpoint, data)
	if err != nil {
		return "", graphError(body, err)
	}

	var result transfer.GraphIDResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("facebook: error parsing response: %w", err)
	}
	if result.PostID != "" {
		return result.PostID, nil
	}
	if result.ID == "" {
		return "", errors.New("facebook: no post id returned")
	}
	return result.ID, nil
}
