package service

import (
	"context"
	"errors"

	"github.com/kerdahl/authentication-samples/internal/api"
	"github.com/kerdahl/authentication-samples/internal/biz"
)

// homeService 首页服务实现
type homeService struct {
	homeUsecase *biz.HomeUsecase
}

// NewHomeService 创建 HomeService
func NewHomeService(homeUsecase *biz.HomeUsecase) api.HomeService {
	return &homeService{
		homeUsecase: homeUsecase,
	}
}

// Home 执行聊天演示，进行 DTO 转换
func (s *homeService) Home(ctx context.Context, id *biz.Identity) *api.ProfileView {
	outcome := s.homeUsecase.Demonstrate(ctx, id)

	// biz identity -> api DTO
	return &api.ProfileView{
		AccessToken:     id.AccessToken,
		RefreshToken:    id.RefreshToken,
		DisplayName:     id.DisplayName,
		Description:     id.Description,
		ProfileImageURL: id.ProfileImageURL,
		ChatSent:        id.ChatSent,
		ChatStatus:      chatStatus(outcome),
	}
}

// chatStatus 生成不含内部细节的状态说明
func chatStatus(o biz.ChatOutcome) string {
	switch {
	case !o.Attempted:
		return ""
	case o.Err == nil:
		return "sent"
	case errors.Is(o.Err, biz.ErrChatConnection):
		return "could not connect to chat"
	case errors.Is(o.Err, biz.ErrChatJoin):
		return "could not join the channel"
	case errors.Is(o.Err, biz.ErrChatSend):
		return "message was rejected"
	default:
		return "failed"
	}
}
