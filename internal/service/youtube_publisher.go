package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeTitleLimit = 100

type youtubePublisher struct {
	oauth    *oauth2.Config
	client   *http.Client
	endpoint string
}

func NewYoutubePublisher(clientID, clientSecret string, client *http.Client) Adapter {
	return NewYoutubePublisherWithEndpoint(clientID, clientSecret, google.Endpoint, "", client)
}

// NewYoutubePublisherWithEndpoint points the adapter at a different API and token endpoint.
func NewYoutubePublisherWithEndpoint(clientID, clientSecret string, tokenEndpoint oauth2.Endpoint, apiEndpoint string, client *http.Client) Adapter {
	return &youtubePublisher{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
			Endpoint:     tokenEndpoint,
		},
		client:   client,
		endpoint: apiEndpoint,
	}
}

func (p *youtubePublisher) Platform() string {
	return models.PlatformYoutube
}

func (p *youtubePublisher) Publish(ctx context.Context, account *models.SocialAccount, content string, media []models.MediaRef) (string, error) {
	var video *models.MediaRef
	for i := range media {
		if media[i].IsVideo() {
			video = &media[i]
			break
		}
	}
	if video == nil {
		return "", errors.New("youtube: a post needs a video")
	}

	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	authClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken}))

	opts := []option.ClientOption{option.WithHTTPClient(authClient)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("youtube: error creating service: %w", err)
	}

	source, err := p.openMedia(ctx, video.URL)
	if err != nil {
		return "", err
	}
	defer source.Body.Close()

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(content),
			Description: content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	response, err := service.Videos.Insert([]string{"snippet", "status"}, upload).Media(source.Body).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("youtube: error uploading video: %w", err)
	}

	slog.Info("video uploaded", "url", "https://youtu.be/"+response.Id)
	return response.Id, nil
}

// openMedia streams the stored video instead of staging it on disk.
func (p *youtubePublisher) openMedia(ctx context.Context, mediaURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: error creating media request: %w", err)
	}

	client := p.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: error downloading video: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("youtube: unexpected media response status: %d", resp.StatusCode)
	}
	return resp, nil
}

func (p *youtubePublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) (*transfer.RefreshedToken, error) {
	if account.RefreshToken == "" {
		return nil, errors.New("youtube: account has no refresh token")
	}
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	token, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("youtube: %w: %v", ErrTokenRevoked, err)
		}
		return nil, err
	}

	return &transfer.RefreshedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

func videoTitle(content string) string {
	title := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if title == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(title) > youtubeTitleLimit {
		title = string([]rune(title)[:youtubeTitleLimit])
	}
	return title
}
