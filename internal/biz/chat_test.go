package biz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeRunner struct {
	calls    int
	err      error
	token    string
	username string
}

func (f *fakeRunner) Run(_ context.Context, accessToken, username string) error {
	f.calls++
	f.token = accessToken
	f.username = username
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDemonstrateEveryLoad(t *testing.T) {
	runner := &fakeRunner{}
	uc := NewHomeUsecase(runner, ChatEveryLoad, quietLogger())
	id := &Identity{Profile: Profile{Login: "alice", DisplayName: "Alice"}, AccessToken: "tok"}

	for i := 0; i < 2; i++ {
		out := uc.Demonstrate(context.Background(), id)
		if !out.Attempted || out.Err != nil {
			t.Fatalf("unexpected outcome: %+v", out)
		}
	}
	if runner.calls != 2 {
		t.Errorf("expected 2 runs, got %d", runner.calls)
	}
	if runner.token != "tok" || runner.username != "alice" {
		t.Errorf("runner got token=%q username=%q", runner.token, runner.username)
	}
	if !id.ChatSent {
		t.Error("expected ChatSent after a successful run")
	}
}

func TestDemonstrateOncePerSession(t *testing.T) {
	runner := &fakeRunner{}
	uc := NewHomeUsecase(runner, ChatOncePerSession, quietLogger())
	id := &Identity{Profile: Profile{DisplayName: "Bob"}}

	uc.Demonstrate(context.Background(), id)
	out := uc.Demonstrate(context.Background(), id)
	if out.Attempted {
		t.Error("second render should not attempt a send")
	}
	if runner.calls != 1 {
		t.Errorf("expected 1 run, got %d", runner.calls)
	}
	if runner.username != "Bob" {
		t.Errorf("expected display name fallback, got %q", runner.username)
	}
}

func TestDemonstrateOncePerSessionRetriesAfterFailure(t *testing.T) {
	runner := &fakeRunner{err: NewChatError(ChatStageConnect, errors.New("refused"))}
	uc := NewHomeUsecase(runner, ChatOncePerSession, quietLogger())
	id := &Identity{}

	uc.Demonstrate(context.Background(), id)
	runner.err = nil
	uc.Demonstrate(context.Background(), id)
	if runner.calls != 2 || !id.ChatSent {
		t.Errorf("expected a second attempt after failure, calls=%d sent=%v", runner.calls, id.ChatSent)
	}
}

func TestDemonstrateDisabled(t *testing.T) {
	runner := &fakeRunner{}
	uc := NewHomeUsecase(runner, ChatDisabled, quietLogger())
	id := &Identity{}

	if out := uc.Demonstrate(context.Background(), id); out.Attempted {
		t.Error("disabled mode must not attempt a send")
	}
	if runner.calls != 0 || id.ChatSent {
		t.Errorf("unexpected state: calls=%d sent=%v", runner.calls, id.ChatSent)
	}
}

func TestDemonstrateFailureClearsFlag(t *testing.T) {
	runner := &fakeRunner{err: NewChatError(ChatStageSend, errors.New("rejected"))}
	uc := NewHomeUsecase(runner, ChatEveryLoad, quietLogger())
	id := &Identity{ChatSent: true}

	out := uc.Demonstrate(context.Background(), id)
	if !errors.Is(out.Err, ErrChatSend) {
		t.Fatalf("expected ErrChatSend, got %v", out.Err)
	}
	if errors.Is(out.Err, ErrChatConnection) {
		t.Error("send failure must not match ErrChatConnection")
	}
	if id.ChatSent {
		t.Error("ChatSent must be false after a failed run")
	}
}
