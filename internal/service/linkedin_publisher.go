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
)

const linkedinAPIURL = "https://api.linkedin.com"

type linkedinPublisher struct {
	baseURL string
	client  *http.Client
}

func NewLinkedInPublisher(client *http.Client) Adapter {
	return NewLinkedInPublisherWithBaseURL(linkedinAPIURL, client)
}

func NewLinkedInPublisherWithBaseURL(baseURL string, client *http.Client) Adapter {
	return &linkedinPublisher{baseURL: baseURL, client: client}
}

func (p *linkedinPublisher) Platform() string {
	return models.PlatformLinkedIn
}

func (p *linkedinPublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	author := account.AccountID
	if !strings.HasPrefix(author, "urn:li:") {
		author = "urn:li:person:" + author
	}

	share := transfer.LinkedInShareContent{
		ShareCommentary:    transfer.LinkedInText{Text: content},
		ShareMediaCategory: "NONE",
	}
	for _, m := range media {
		share.ShareMediaCategory = "ARTICLE"
		share.Media = append(share.Media, transfer.LinkedInMedia{
			Status:      "READY",
			OriginalURL: m.URL,
		})
	}

	payload := transfer.LinkedInShareRequest{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{ShareContent: share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	headers := map[string]string{
		"Authorization":             "Bearer " + account.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}

	body, header, err := sendJSONWithHeader(ctx, p.client, p.Platform(), http.MethodPost, p.baseURL+"/v2/ugcPosts", headers, payload)
	if err != nil {
		var apiErr *APIError
		var result transfer.LinkedInResponse
		if errors.As(err, &apiErr) && json.Unmarshal(body, &result) == nil && result.Message != "" {
			apiErr.Message = result.Message
		}
		return "", err
	}

	// The share id comes back in X-RestLi-Id; newer API versions also echo it in the body.
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	var result transfer.LinkedInResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("linkedin: failed to decode response: %w", err)
		}
	}
	if result.ID == "" {
		return "", errors.New("linkedin: no share id returned")
	}
	return result.ID, nil
}
