package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/twitch"
	"gopkg.in/yaml.v3"
)

// Config is the config structure.
type Config struct {
	Server  Server  `yaml:"server"`
	Auth    Auth    `yaml:"auth"`
	Session Session `yaml:"session"`
	Chat    Chat    `yaml:"chat"`
	Log     Log     `yaml:"log"`
}

// Server is the server config.
type Server struct {
	Addr         string        `yaml:"addr"`
	BaseURL      string        `yaml:"base_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Auth is the authentication config.
type Auth struct {
	Provider     string `yaml:"provider"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"` // Optional: if not set, auto-constructed from server.base_url
	// Issuer enables OIDC discovery and ID token verification when set.
	Issuer         string        `yaml:"issuer"`
	AuthURL        string        `yaml:"auth_url"`
	TokenURL       string        `yaml:"token_url"`
	APIBaseURL     string        `yaml:"api_base_url"`
	Scopes         []string      `yaml:"scopes"`
	PKCE           bool          `yaml:"pkce"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Session is the session store config.
type Session struct {
	Secret        string        `yaml:"secret"`
	CookieName    string        `yaml:"cookie_name"`
	MaxAge        time.Duration `yaml:"max_age"`
	Secure        bool          `yaml:"secure"`
	Backend       string        `yaml:"backend"` // memory, sqlite or redis
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// Chat is the chat demonstration config.
type Chat struct {
	// Mode is one of every_load, once_per_session or disabled.
	Mode    string        `yaml:"mode"`
	URL     string        `yaml:"url"`
	Message string        `yaml:"message"`
	Timeout time.Duration `yaml:"timeout"`
}

// Log is the logger config.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	ChatModeEveryLoad      = "every_load"
	ChatModeOncePerSession = "once_per_session"
	ChatModeDisabled       = "disabled"
)

// GetRedirectURL returns the OAuth2 callback URL
// If RedirectURL is explicitly configured, use it
// Otherwise, construct from server base_url + provider callback path
func (a *Auth) GetRedirectURL(serverBaseURL string) string {
	if a.RedirectURL != "" {
		return a.RedirectURL
	}
	return strings.TrimRight(serverBaseURL, "/") + "/auth/" + a.Provider + "/callback"
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:         ":3000",
			BaseURL:      "http://localhost:3000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Auth: Auth{
			Provider:       "twitch",
			AuthURL:        twitch.Endpoint.AuthURL,
			TokenURL:       twitch.Endpoint.TokenURL,
			APIBaseURL:     "https://api.twitch.tv/helix",
			Scopes:         []string{"user_read", "chat:read", "chat:edit"},
			RequestTimeout: 10 * time.Second,
		},
		Session: Session{
			CookieName: "twitch_auth_session",
			MaxAge:     24 * time.Hour,
			Backend:    BackendMemory,
			SQLitePath: "data/sessions.db",
		},
		Chat: Chat{
			Mode:    ChatModeEveryLoad,
			URL:     "wss://irc-ws.chat.twitch.tv:443",
			Message: "Example chat message",
			Timeout: 15 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads config from file, applies env overrides and validates the result.
// A missing file is not an error: the defaults plus environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.Auth.RedirectURL == "" {
		cfg.Auth.RedirectURL = cfg.Auth.GetRedirectURL(cfg.Server.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	// Override server config from env vars if present
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SERVER_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}

	// Override auth config from env vars if present
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		c.Auth.ClientID = v
	}
	if v := os.Getenv("TWITCH_SECRET"); v != "" {
		c.Auth.ClientSecret = v
	}
	if v := os.Getenv("CALLBACK_URL"); v != "" {
		c.Auth.RedirectURL = v
	}
	if v := os.Getenv("OIDC_ISSUER"); v != "" {
		c.Auth.Issuer = v
	}

	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("SESSION_SQLITE_PATH"); v != "" {
		c.Session.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Session.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.RedisDB = n
		}
	}

	if v := os.Getenv("CHAT_MODE"); v != "" {
		c.Chat.Mode = v
	}
	if v := os.Getenv("CHAT_URL"); v != "" {
		c.Chat.URL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Auth.ClientID == "" {
		return errors.New("TWITCH_CLIENT_ID (auth.client_id) cannot be empty")
	}
	if c.Auth.ClientSecret == "" {
		return errors.New("TWITCH_SECRET (auth.client_secret) cannot be empty")
	}
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET (session.secret) cannot be empty")
	}
	if c.Auth.RedirectURL == "" {
		return errors.New("CALLBACK_URL (auth.redirect_url) cannot be empty")
	}
	u, err := url.Parse(c.Auth.RedirectURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("callback url %q must be an absolute URL", c.Auth.RedirectURL)
	}
	if c.Auth.Provider == "" {
		return errors.New("auth.provider cannot be empty")
	}
	if c.Auth.Issuer == "" && (c.Auth.AuthURL == "" || c.Auth.TokenURL == "") {
		return errors.New("auth.auth_url and auth.token_url are required without auth.issuer")
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Session.SQLitePath == "" {
			return errors.New("session.sqlite_path cannot be empty for the sqlite backend")
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("REDIS_ADDR (session.redis_addr) cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	switch c.Chat.Mode {
	case ChatModeEveryLoad, ChatModeOncePerSession, ChatModeDisabled:
	default:
		return fmt.Errorf("unknown chat mode %q", c.Chat.Mode)
	}
	if c.Chat.Mode != ChatModeDisabled && c.Chat.URL == "" {
		return errors.New("chat.url cannot be empty")
	}
	return nil
}
