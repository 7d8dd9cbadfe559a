package irc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// fakeChat is a minimal chat server speaking the Twitch dialect.
type fakeChat struct {
	rejectLogin bool
	rejectSay   string

	mu    sync.Mutex
	lines []string
}

func (f *fakeChat) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	write := func(lines ...string) {
		conn.Write(ctx, websocket.MessageText, []byte(strings.Join(lines, "\r\n")+"\r\n"))
	}

	var nick string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\r\n") {
			f.mu.Lock()
			f.lines = append(f.lines, line)
			f.mu.Unlock()

			m, err := ParseMessage(line)
			if err != nil {
				continue
			}
			switch m.Command {
			case "NICK":
				nick = m.Param(0)
				if f.rejectLogin {
					write(":tmi.twitch.tv NOTICE * :Login authentication failed")
					continue
				}
				write(
					":tmi.twitch.tv 001 "+nick+" :Welcome, GLHF!",
					":tmi.twitch.tv 376 "+nick+" :>",
					"PING :tmi.twitch.tv",
					":tmi.twitch.tv CAP * ACK :twitch.tv/tags twitch.tv/commands",
				)
			case "JOIN":
				ch := m.Param(0)
				write(
					":"+nick+"!"+nick+"@"+nick+".tmi.twitch.tv JOIN "+ch,
					":"+nick+".tmi.twitch.tv 353 "+nick+" = "+ch+" :"+nick,
					":"+nick+".tmi.twitch.tv 366 "+nick+" "+ch+" :End of /NAMES list",
					"@badges=;color= :tmi.twitch.tv USERSTATE "+ch,
					"@emote-only=0 :tmi.twitch.tv ROOMSTATE "+ch,
				)
			case "PRIVMSG":
				ch := m.Param(0)
				if f.rejectSay != "" {
					write("@msg-id=" + f.rejectSay + " :tmi.twitch.tv NOTICE " + ch + " :You are permanently banned from talking in " + ch[1:] + ".")
					continue
				}
				write("@badges=;color= :tmi.twitch.tv USERSTATE " + ch)
			}
		}
	}
}

func startChat(t *testing.T, f *fakeChat) *Config {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return &Config{
		URL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Token: "tok",
		Nick:  "Dallas",
	}
}

func TestClientSay(t *testing.T) {
	f := &fakeChat{}
	cfg := startChat(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := c.Join(ctx, "Dallas"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := c.Say(ctx, "dallas", "hello\nworld"); err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Logf("close: %v", err)
	}

	got := strings.Join(f.received(), "\n")
	for _, want := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:tok",
		"NICK dallas",
		"PONG :tmi.twitch.tv",
		"JOIN #dallas",
		"PRIVMSG #dallas :hello world",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("server did not receive %q; got:\n%s", want, got)
		}
	}
}

func TestClientTokenPrefix(t *testing.T) {
	f := &fakeChat{}
	cfg := startChat(t, f)
	cfg.Token = "oauth:tok"

	c, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	c.Close()

	for _, line := range f.received() {
		if strings.HasPrefix(line, "PASS ") && line != "PASS oauth:tok" {
			t.Errorf("token prefix doubled: %q", line)
		}
	}
}

func TestClientLoginFailed(t *testing.T) {
	cfg := startChat(t, &fakeChat{rejectLogin: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, cfg)
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}

func TestClientSayRejected(t *testing.T) {
	cfg := startChat(t, &fakeChat{rejectSay: "msg_banned"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()
	if err := c.Join(ctx, "dallas"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	err = c.Say(ctx, "dallas", "hello")
	if !errors.Is(err, ErrNotice) {
		t.Fatalf("expected ErrNotice, got %v", err)
	}
	if !strings.Contains(err.Error(), "msg_banned") {
		t.Errorf("notice id missing from %q", err)
	}
}

func TestDialValidation(t *testing.T) {
	cases := map[string]*Config{
		"nil":      nil,
		"no token": {Nick: "dallas"},
		"no nick":  {Token: "tok"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Dial(context.Background(), cfg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDialUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	if _, err := Dial(context.Background(), &Config{URL: url, Token: "tok", Nick: "dallas"}); err == nil {
		t.Fatal("expected a dial error")
	}
}
