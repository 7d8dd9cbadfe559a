package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/kerdahl/authentication-samples/internal/auth/authtest"
	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"
)

var testProfile = biz.Profile{
	ID:              "44322889",
	Login:           "dallas",
	DisplayName:     "dallas",
	Description:     "Just a gamer playing games and chatting. :)",
	ProfileImageURL: "https://static-cdn.jtvnw.net/jtv_user_pictures/dallas-profile_image.png",
	CreatedAt:       time.Date(2013, 6, 3, 19, 12, 2, 0, time.UTC),
}

func newTestClient(t *testing.T, p *authtest.Provider, mutate func(*conf.Auth)) *Client {
	t.Helper()
	cfg := p.AuthConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	fetcher := NewHelixFetcher(cfg.ClientID, cfg.APIBaseURL, p.Server.Client())
	client, err := NewClient(context.Background(), &cfg, fetcher, p.Server.Client())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestBeginAuthorization(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, nil)

	a, err := client.BeginAuthorization(nil)
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}
	if a.State == "" {
		t.Fatal("state should not be empty")
	}

	u, err := url.Parse(a.URL)
	if err != nil {
		t.Fatalf("invalid authorization url %q: %v", a.URL, err)
	}
	q := u.Query()
	if q.Get("client_id") != authtest.ClientID {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != a.State {
		t.Errorf("state in url %q does not match %q", q.Get("state"), a.State)
	}
	if q.Get("redirect_uri") != authtest.RedirectURL {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "user_read chat:read chat:edit" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("code_challenge") != "" || a.Verifier != "" {
		t.Error("PKCE parameters must be absent when disabled")
	}

	b, err := client.BeginAuthorization([]string{"user:read:email"})
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}
	if b.State == a.State {
		t.Error("each attempt must get a fresh state")
	}
	u, _ = url.Parse(b.URL)
	if u.Query().Get("scope") != "user:read:email" {
		t.Errorf("requested scopes not used: %q", u.Query().Get("scope"))
	}
}

func TestBeginAuthorizationWithPKCE(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, func(c *conf.Auth) { c.PKCE = true })

	a, err := client.BeginAuthorization(nil)
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}
	if a.Verifier == "" {
		t.Fatal("verifier should be set")
	}
	u, _ := url.Parse(a.URL)
	if u.Query().Get("code_challenge_method") != "S256" || u.Query().Get("code_challenge") == "" {
		t.Errorf("missing PKCE challenge in %s", a.URL)
	}
}

func TestCompleteAuthorization(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, nil)
	p.IssueCode("VALIDCODE", authtest.Grant{AccessToken: "access-1", RefreshToken: "refresh-1"})

	pending := &Authorization{State: "S"}
	id, err := client.CompleteAuthorization(context.Background(), "VALIDCODE", "S", pending)
	if err != nil {
		t.Fatalf("CompleteAuthorization failed: %v", err)
	}
	if id.AccessToken != "access-1" || id.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q/%q", id.AccessToken, id.RefreshToken)
	}
	if id.DisplayName != testProfile.DisplayName || id.ID != testProfile.ID || id.Description != testProfile.Description {
		t.Errorf("profile not copied: %+v", id.Profile)
	}
	if !id.CreatedAt.Equal(testProfile.CreatedAt) {
		t.Errorf("created_at = %v", id.CreatedAt)
	}
	if id.ChatSent {
		t.Error("a fresh identity has not sent a chat message")
	}

	// A code is redeemable exactly once.
	_, err = client.CompleteAuthorization(context.Background(), "VALIDCODE", "S", pending)
	if !errors.Is(err, ErrTokenExchange) {
		t.Fatalf("expected ErrTokenExchange on code reuse, got %v", err)
	}
}

func TestCompleteAuthorizationStateMismatch(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, nil)
	p.IssueCode("VALIDCODE", authtest.Grant{AccessToken: "access-1"})

	cases := map[string]struct {
		state   string
		pending *Authorization
	}{
		"no pending":     {state: "S", pending: nil},
		"empty stored":   {state: "S", pending: &Authorization{}},
		"empty received": {state: "", pending: &Authorization{State: "S"}},
		"different":      {state: "T", pending: &Authorization{State: "S"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := client.CompleteAuthorization(context.Background(), "VALIDCODE", tc.state, tc.pending)
			if !errors.Is(err, ErrStateMismatch) {
				t.Fatalf("expected ErrStateMismatch, got %v", err)
			}
			if id != nil {
				t.Fatal("no identity may be returned on state mismatch")
			}
		})
	}
	if p.Exchanges() != 0 {
		t.Errorf("state mismatch must not reach the token endpoint, got %d exchanges", p.Exchanges())
	}
}

func TestCompleteAuthorizationInvalidCode(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, nil)

	_, err := client.CompleteAuthorization(context.Background(), "BOGUS", "S", &Authorization{State: "S"})
	if !errors.Is(err, ErrTokenExchange) {
		t.Fatalf("expected ErrTokenExchange, got %v", err)
	}
	if p.UserCalls() != 0 {
		t.Error("profile must not be fetched after a failed exchange")
	}

	_, err = client.CompleteAuthorization(context.Background(), "", "S", &Authorization{State: "S"})
	if !errors.Is(err, ErrTokenExchange) {
		t.Fatalf("expected ErrTokenExchange for an empty code, got %v", err)
	}
}

func TestCompleteAuthorizationProfileFailure(t *testing.T) {
	p := authtest.NewProvider(t, testProfile)
	client := newTestClient(t, p, nil)
	p.IssueCode("VALIDCODE", authtest.Grant{AccessToken: "access-1"})
	p.FailUsers(http.StatusUnauthorized, `{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`)

	id, err := client.CompleteAuthorization(context.Background(), "VALIDCODE", "S", &Authorization{State: "S"})
	if !errors.Is(err, ErrProfileFetch) {
		t.Fatalf("expected ErrProfileFetch, got %v", err)
	}
	if id != nil {
		t.Fatal("no partial identity may be returned")
	}
}

func TestNewClientDiscoversIssuer(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/authorize",
			"token_endpoint":         issuer + "/token",
			"jwks_uri":               issuer + "/keys",
			"userinfo_endpoint":      issuer + "/userinfo",
		})
	}))
	defer srv.Close()
	issuer = srv.URL

	cfg := &conf.Auth{
		Provider:    "twitch",
		ClientID:    "cid",
		Issuer:      issuer,
		RedirectURL: authtest.RedirectURL,
	}
	client, err := NewClient(context.Background(), cfg, NewHelixFetcher("cid", issuer, nil), srv.Client())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.verifier == nil {
		t.Error("an issuer should enable id token verification")
	}

	a, err := client.BeginAuthorization(nil)
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}
	u, _ := url.Parse(a.URL)
	if u.Scheme+"://"+u.Host+u.Path != issuer+"/authorize" {
		t.Errorf("discovered endpoint not used: %s", a.URL)
	}
}

func TestNewClientRequiresFetcher(t *testing.T) {
	if _, err := NewClient(context.Background(), &conf.Auth{}, nil, nil); err == nil {
		t.Fatal("expected an error without a profile fetcher")
	}
}
