package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"golang.org/x/oauth2"
)

const twitterAPIURL = "https://api.twitter.com"

type twitterPublisher struct {
	baseURL string
	client  *http.Client
}

// NewTwitterPublisher posts through the v2 tweets endpoint with the account's
// OAuth 2.0 user token.
func NewTwitterPublisher(client *http.Client) Adapter {
	return NewTwitterPublisherWithBaseURL(twitterAPIURL, client)
}

func NewTwitterPublisherWithBaseURL(baseURL string, client *http.Client) Adapter {
	return &twitterPublisher{baseURL: baseURL, client: client}
}

func (p *twitterPublisher) Platform() string {
	return models.PlatformTwitter
}

func (p *twitterPublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	text := content
	for _, m := range media {
		text = strings.TrimSpace(text + "\n" + m.URL)
	}
	if text == "" {
		return "", errors.New("twitter: nothing to post")
	}

	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: account.AccessToken,
		TokenType:   "Bearer",
	}))

	body, err := sendJSON(ctx, client, p.Platform(), http.MethodPost, p.baseURL+"/2/tweets", nil, transfer.TweetRequest{Text: text})

	var result transfer.TweetResponse
	if len(body) > 0 {
		if jerr := json.Unmarshal(body, &result); jerr != nil && err == nil {
			return "", fmt.Errorf("twitter: error parsing response: %w", jerr)
		}
	}

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case result.Detail != "":
				apiErr.Message = result.Detail
			case len(result.Errors) > 0:
				apiErr.Message = result.Errors[0].Message
			}
		}
		return "", err
	}

	if result.Data.ID == "" {
		return "", errors.New("twitter: no tweet id returned")
	}
	return result.Data.ID, nil
}
