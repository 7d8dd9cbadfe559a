package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kerdahl/authentication-samples/internal/api"
	"github.com/kerdahl/authentication-samples/internal/auth"
	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"
	"github.com/kerdahl/authentication-samples/internal/data"
	"github.com/kerdahl/authentication-samples/internal/server"
	"github.com/kerdahl/authentication-samples/internal/service"
	"github.com/kerdahl/authentication-samples/internal/session"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}

	// 手动依赖注入
	// data 层
	sessionRepo, err := newSessionRepo(ctx, cfg.Session)
	if err != nil {
		logger.Error("failed to init session repo", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer sessionRepo.Close()
	chatRunner := data.NewChatRunner(cfg.Chat, nil)

	// auth 层
	httpClient := &http.Client{Timeout: cfg.Auth.RequestTimeout}
	fetcher := auth.NewHelixFetcher(cfg.Auth.ClientID, cfg.Auth.APIBaseURL, httpClient)
	authClient, err := auth.NewClient(ctx, &cfg.Auth, fetcher, httpClient)
	if err != nil {
		logger.Error("failed to init OAuth2 client", "error", err)
		os.Exit(1)
	}
	logger.Info("OAuth2 client ready",
		"provider", cfg.Auth.Provider,
		"redirect_url", cfg.Auth.RedirectURL,
		"oidc", cfg.Auth.Issuer != "",
	)

	sessions := session.NewManager(session.NewStore(sessionRepo, cfg.Session), cfg.Session.CookieName)

	// biz 层
	homeUsecase := biz.NewHomeUsecase(chatRunner, biz.ChatMode(cfg.Chat.Mode), logger)
	// service 层
	homeService := service.NewHomeService(homeUsecase)
	// api 层
	router := api.NewRouter(
		api.NewHomeHandler(homeService, sessions, api.NewRenderer(cfg.Auth.Provider), logger),
		api.NewAuthHandler(authClient, sessions, cfg.Auth.Provider, logger),
		api.NewHealthHandler(sessionRepo),
		auth.OptionalAuthMiddleware(sessions, logger),
		logger,
	)

	srv := server.New(cfg.Server, router)
	if err := server.Run(ctx, srv, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg conf.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newSessionRepo(ctx context.Context, cfg conf.Session) (biz.SessionRepo, error) {
	switch cfg.Backend {
	case conf.BackendSQLite:
		return data.NewSQLiteSessionRepo(cfg.SQLitePath, 15*time.Minute)
	case conf.BackendRedis:
		repo := data.NewRedisSessionRepo(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return data.NewMemorySessionRepo(15 * time.Minute), nil
	}
}
