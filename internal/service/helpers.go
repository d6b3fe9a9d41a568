package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/socialdeck/internal/transfer"
)

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status code %d", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status code: %d)", e.Platform, e.Message, e.StatusCode)
}

// sendJSON posts payload as JSON and returns the raw response body. Non-2xx
// answers come back as the body plus an *APIError.
func sendJSON(ctx context.Context, client *http.Client, platform, method, url string, headers map[string]string, payload any) ([]byte, error) {
	body, _, err := sendJSONWithHeader(ctx, client, platform, method, url, headers, payload)
	return body, err
}

// sendJSONWithHeader is sendJSON for APIs that return identifiers in response headers.
func sendJSONWithHeader(ctx context.Context, client *http.Client, platform, method, url string, headers map[string]string, payload any) ([]byte, http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("error marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(client, platform, req)
}

func sendForm(ctx context.Context, client *http.Client, platform, method, endpoint string, data url.Values) ([]byte, error) {
	var body io.Reader
	if method == http.MethodGet {
		endpoint = endpoint + "?" + data.Encode()
	} else {
		body = strings.NewReader(data.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return do(client, platform, req)
}

// graphError fills in the message of a Graph API failure from its error envelope.
func graphError(body []byte, err error) error {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err
	}
	var ge transfer.GraphErrorResponse
	if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
		apiErr.Message = ge.Error.Message
	}
	return apiErr
}

func do(client *http.Client, platform string, req *http.Request) ([]byte, error) {
	body, _, err := doRequest(client, platform, req)
	return body, err
}

func doRequest(client *http.Client, platform string, req *http.Request) ([]byte, http.Header, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, resp.Header, &APIError{Platform: platform, StatusCode: resp.StatusCode}
	}
	return respBody, resp.Header, nil
}
