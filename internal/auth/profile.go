package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kerdahl/authentication-samples/internal/biz"

	"golang.org/x/oauth2"
)

// maxProfileBody caps how much of a user-info response is read.
const maxProfileBody = 1 << 20

// ProfileFetcher resolves an access token into the user's profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*biz.Profile, error)
}

// HelixFetcher fetches the profile from the Twitch Helix users endpoint.
type HelixFetcher struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
}

// NewHelixFetcher creates a fetcher for the API rooted at baseURL.
func NewHelixFetcher(clientID, baseURL string, httpClient *http.Client) *HelixFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HelixFetcher{
		clientID:   clientID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type usersEnvelope struct {
	Data []biz.Profile `json:"data"`
}

// FetchProfile issues one authenticated GET for the token's user and returns
// the first record. Failures are not retried.
func (f *HelixFetcher) FetchProfile(ctx context.Context, accessToken string) (*biz.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/users", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	req.Header.Set("Client-ID", f.clientID)
	req.Header.Set("Accept", "application/json")

	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
			Base:   f.httpClient.Transport,
		},
		Timeout: f.httpClient.Timeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrProfileFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &ProfileFetchError{StatusCode: resp.StatusCode}
		// The error body is informational; an unparsable one still yields the status.
		_ = json.Unmarshal(body, &fetchErr.Body)
		return nil, fetchErr
	}

	var envelope usersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: no user records", ErrMalformedResponse)
	}
	return &envelope.Data[0], nil
}
