// Package authtest provides an in-process identity provider for tests: an
// OAuth2 token endpoint that honors each authorization code once, and a
// Helix-style users endpoint.
package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	RedirectURL  = "http://localhost:3000/auth/twitch/callback"
)

// Grant is what the token endpoint returns for a code.
type Grant struct {
	AccessToken  string
	RefreshToken string
}

// Provider is a fake OAuth2 provider.
type Provider struct {
	Server *httptest.Server

	mu        sync.Mutex
	codes     map[string]Grant
	used      map[string]bool
	tokens    map[string]bool
	profile   biz.Profile
	override  *response
	exchanges int
	userCalls int
}

type response struct {
	status int
	body   string
}

// NewProvider starts a fake provider serving profile for every valid token.
// The server is closed when the test ends.
func NewProvider(t testing.TB, profile biz.Profile) *Provider {
	t.Helper()
	p := &Provider{
		codes:   make(map[string]Grant),
		used:    make(map[string]bool),
		tokens:  make(map[string]bool),
		profile: profile,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/oauth2/token", p.token)
	mux.HandleFunc("/helix/users", p.users)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// AuthConfig returns an auth config pointing at the fake provider.
func (p *Provider) AuthConfig() conf.Auth {
	return conf.Auth{
		Provider:     "twitch",
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURL:  RedirectURL,
		AuthURL:      p.Server.URL + "/oauth2/authorize",
		TokenURL:     p.Server.URL + "/oauth2/token",
		APIBaseURL:   p.Server.URL + "/helix",
		Scopes:       []string{"user_read", "chat:read", "chat:edit"},
	}
}

// IssueCode registers a code redeemable once for g.
func (p *Provider) IssueCode(code string, g Grant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = g
}

// FailUsers makes the users endpoint answer every request with status and body.
func (p *Provider) FailUsers(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.override = &response{status: status, body: body}
}

// Exchanges returns how many token requests were received.
func (p *Provider) Exchanges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchanges
}

// UserCalls returns how many users requests were received.
func (p *Provider) UserCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userCalls
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges++

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"status": 405, "message": "method not allowed"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "message": "invalid form"})
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusForbidden, map[string]any{"status": 403, "message": "invalid client secret"})
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "message": "unsupported grant type"})
		return
	}

	code := r.PostForm.Get("code")
	grant, ok := p.codes[code]
	if !ok || p.used[code] {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "message": "Invalid authorization code"})
		return
	}
	p.used[code] = true
	p.tokens[grant.AccessToken] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  grant.AccessToken,
		"refresh_token": grant.RefreshToken,
		"expires_in":    14400,
		"scope":         []string{"user_read", "chat:read", "chat:edit"},
		"token_type":    "bearer",
	})
}

func (p *Provider) users(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userCalls++

	if p.override != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.override.status)
		fmt.Fprint(w, p.override.body)
		return
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || !p.tokens[token] || r.Header.Get("Client-ID") != ClientID {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":   "Unauthorized",
			"status":  401,
			"message": "Invalid OAuth token",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": []biz.Profile{p.profile}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
