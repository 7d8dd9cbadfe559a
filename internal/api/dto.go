package api

import (
	"context"

	"github.com/kerdahl/authentication-samples/internal/auth"
	"github.com/kerdahl/authentication-samples/internal/biz"
)

// ProfileView 首页展示的用户信息 DTO
type ProfileView struct {
	AccessToken     string
	RefreshToken    string
	DisplayName     string
	Description     string
	ProfileImageURL string
	ChatSent        bool
	// ChatStatus 聊天演示结果的简短说明
	ChatStatus string
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Session   string `json:"session"`
	Timestamp int64  `json:"timestamp"`
}

// HomeService 首页服务接口（由 service 层实现）
// Home 运行聊天演示并更新 id.ChatSent，返回待渲染的视图
type HomeService interface {
	Home(ctx context.Context, id *biz.Identity) *ProfileView
}

// Authenticator OAuth2 授权流程（由 auth.Client 实现）
type Authenticator interface {
	BeginAuthorization(scopes []string) (*auth.Authorization, error)
	CompleteAuthorization(ctx context.Context, code, receivedState string, pending *auth.Authorization) (*biz.Identity, error)
}

// Pinger 会话存储连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}
