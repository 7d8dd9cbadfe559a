package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Client runs the OAuth2 authorization code flow against the provider and
// resolves the resulting token into an Identity.
type Client struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier // nil unless an issuer is configured
	profiles     ProfileFetcher
	httpClient   *http.Client
	pkce         bool
}

// NewClient creates a new OAuth2 client. When cfg.Issuer is set the endpoints
// are discovered from the issuer's .well-known/openid-configuration and ID
// tokens returned by the token endpoint are verified.
func NewClient(ctx context.Context, cfg *conf.Auth, profiles ProfileFetcher, httpClient *http.Client) (*Client, error) {
	if profiles == nil {
		return nil, errors.New("auth: profile fetcher is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthURL,
		TokenURL: cfg.TokenURL,
	}

	var verifier *oidc.IDTokenVerifier
	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		endpoint = provider.Endpoint()
		verifier = provider.Verifier(&oidc.Config{
			ClientID: cfg.ClientID,
		})
	}
	// Twitch expects the client credentials in the form body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Client{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		verifier:   verifier,
		profiles:   profiles,
		httpClient: httpClient,
		pkce:       cfg.PKCE,
	}, nil
}

// BeginAuthorization starts an authorization attempt for scopes (the
// configured scopes when empty). The caller redirects to the returned URL and
// keeps State and Verifier with the session.
func (c *Client) BeginAuthorization(scopes []string) (*Authorization, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = c.oauth2Config.Scopes
	}

	a := &Authorization{State: state}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", strings.Join(scopes, " ")),
	}
	if c.pkce {
		a.Verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(a.Verifier))
	}
	a.URL = c.oauth2Config.AuthCodeURL(state, opts...)
	return a, nil
}

// CompleteAuthorization validates the callback state against pending,
// exchanges code for tokens and fetches the user's profile. It never returns
// an Identity unless all three steps succeed.
func (c *Client) CompleteAuthorization(ctx context.Context, code, receivedState string, pending *Authorization) (*biz.Identity, error) {
	if pending == nil || pending.State == "" || receivedState == "" ||
		subtle.ConstantTimeCompare([]byte(pending.State), []byte(receivedState)) != 1 {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrTokenExchange)
	}

	token, err := c.exchange(ctx, code, pending.Verifier)
	if err != nil {
		return nil, err
	}

	var idToken *oidc.IDToken
	if c.verifier != nil {
		if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
			idToken, err = c.verifier.Verify(oidc.ClientContext(ctx, c.httpClient), raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid id token: %w", ErrTokenExchange, err)
			}
		}
	}

	profile, err := c.profiles.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if idToken != nil && idToken.Subject != profile.ID {
		return nil, fmt.Errorf("%w: id token subject %q does not match profile %q", ErrTokenExchange, idToken.Subject, profile.ID)
	}

	return &biz.Identity{
		Profile:      *profile,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

func (c *Client) exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	token, err := c.oauth2Config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}
	return token, nil
}

// GenerateState returns a fresh anti-forgery state value:
// 32 random bytes, base64-url encoded without padding.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
