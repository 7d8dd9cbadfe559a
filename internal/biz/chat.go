package biz

import (
	"context"
	"errors"
	"log/slog"
)

var (
	ErrChatConnection = errors.New("chat connection failed")
	ErrChatJoin       = errors.New("chat join failed")
	ErrChatSend       = errors.New("chat send failed")
)

// ChatStage names the step of the chat demonstration that failed.
type ChatStage string

const (
	ChatStageConnect ChatStage = "connect"
	ChatStageJoin    ChatStage = "join"
	ChatStageSend    ChatStage = "send"
)

// ChatError records the failing stage of a chat demonstration.
type ChatError struct {
	Stage ChatStage
	Err   error
}

// NewChatError wraps err as a failure of stage.
func NewChatError(stage ChatStage, err error) error {
	return &ChatError{Stage: stage, Err: err}
}

func (e *ChatError) Error() string {
	return "chat " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failing stage.
func (e *ChatError) Is(target error) bool {
	switch e.Stage {
	case ChatStageConnect:
		return target == ErrChatConnection
	case ChatStageJoin:
		return target == ErrChatJoin
	case ChatStageSend:
		return target == ErrChatSend
	}
	return false
}

// ChatRunner connects to the chat service as username, joins the channel
// named after username and sends one message. The stages run strictly in
// order; the first failure is returned as a *ChatError.
type ChatRunner interface {
	Run(ctx context.Context, accessToken, username string) error
}

// ChatMode controls when the demonstration message is sent.
type ChatMode string

const (
	// ChatEveryLoad sends a message on every authenticated home page render.
	ChatEveryLoad ChatMode = "every_load"
	// ChatOncePerSession sends at most one successful message per session.
	ChatOncePerSession ChatMode = "once_per_session"
	// ChatDisabled never sends.
	ChatDisabled ChatMode = "disabled"
)

// ChatOutcome is the result of one demonstration attempt.
type ChatOutcome struct {
	// Attempted is false when the mode skipped the run.
	Attempted bool
	// Err is the failure, if any. It is reported, never fatal.
	Err error
}

// HomeUsecase drives the authenticated home page.
type HomeUsecase struct {
	chat   ChatRunner
	mode   ChatMode
	logger *slog.Logger
}

// NewHomeUsecase creates HomeUsecase
func NewHomeUsecase(chat ChatRunner, mode ChatMode, logger *slog.Logger) *HomeUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomeUsecase{
		chat:   chat,
		mode:   mode,
		logger: logger,
	}
}

// Demonstrate runs the chat demonstration for id according to the configured
// mode and records the result on id.ChatSent. The flag lives on the session's
// identity only, never on shared state.
func (uc *HomeUsecase) Demonstrate(ctx context.Context, id *Identity) ChatOutcome {
	switch uc.mode {
	case ChatDisabled:
		return ChatOutcome{}
	case ChatOncePerSession:
		if id.ChatSent {
			return ChatOutcome{}
		}
	default:
		id.ChatSent = false
	}

	err := uc.chat.Run(ctx, id.AccessToken, id.ChatName())
	if err != nil {
		attrs := []any{"user_id", id.ID, "error", err}
		var chatErr *ChatError
		if errors.As(err, &chatErr) {
			attrs = append(attrs, "stage", string(chatErr.Stage))
		}
		uc.logger.Warn("chat demonstration failed", attrs...)
		id.ChatSent = false
		return ChatOutcome{Attempted: true, Err: err}
	}

	id.ChatSent = true
	return ChatOutcome{Attempted: true}
}
