package data

import (
	"context"
	"net/http"
	"time"

	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"
	"github.com/kerdahl/authentication-samples/internal/data/irc"
)

// chatRunner 通过 IRC-over-WebSocket 发送演示消息
type chatRunner struct {
	url        string
	message    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewChatRunner 创建聊天演示执行器
func NewChatRunner(cfg conf.Chat, httpClient *http.Client) biz.ChatRunner {
	return &chatRunner{
		url:        cfg.URL,
		message:    cfg.Message,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}
}

// Run 连接、加入以 username 命名的频道并发送一条消息
// 每个阶段的失败都包装为 *biz.ChatError；连接始终会被关闭
func (r *chatRunner) Run(ctx context.Context, accessToken, username string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	client, err := irc.Dial(ctx, &irc.Config{
		URL:        r.url,
		Token:      accessToken,
		Nick:       username,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return biz.NewChatError(biz.ChatStageConnect, err)
	}
	defer client.Close()

	if err := client.Join(ctx, username); err != nil {
		return biz.NewChatError(biz.ChatStageJoin, err)
	}
	if err := client.Say(ctx, username, r.message); err != nil {
		return biz.NewChatError(biz.ChatStageSend, err)
	}
	return nil
}
