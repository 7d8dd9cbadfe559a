/*
 * Copyright 2024 Twitch Auth Sample Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package irc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"
)

var (
	// ErrLoginFailed is returned when the server rejects the credentials.
	ErrLoginFailed = errors.New("irc: login failed")
	// ErrNotice is returned when the server answers a command with a NOTICE.
	ErrNotice = errors.New("irc: rejected by server")
)

// Client 单连接聊天客户端，非并发安全
type Client struct {
	conn     *websocket.Conn
	nick     string
	commands bool
	pending  []*Message
}

// Dial 建立连接并完成登录
// Returns once the server has welcomed the user and answered the
// capability request.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.Nick == "" {
		return nil, fmt.Errorf("nick is required")
	}

	conn, _, err := websocket.Dial(ctx, cfg.getURL(), &websocket.DialOptions{
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.getURL(), err)
	}

	c := &Client{conn: conn, nick: strings.ToLower(cfg.Nick)}
	if err := c.login(ctx, strings.TrimPrefix(cfg.Token, "oauth:")); err != nil {
		conn.CloseNow()
		return nil, err
	}
	return c, nil
}

func (c *Client) login(ctx context.Context, token string) error {
	for _, line := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + token,
		"NICK " + c.nick,
	} {
		if err := c.send(ctx, line); err != nil {
			return err
		}
	}

	welcomed, capped := false, false
	_, err := c.waitFor(ctx, func(m *Message) (bool, error) {
		switch m.Command {
		case "001":
			welcomed = true
		case "CAP":
			switch m.Param(1) {
			case "ACK":
				capped = true
				c.commands = strings.Contains(m.Trailing(), "twitch.tv/commands")
			case "NAK":
				capped = true
			}
		case "NOTICE":
			return false, fmt.Errorf("%w: %s", ErrLoginFailed, m.Trailing())
		}
		return welcomed && capped, nil
	})
	return err
}

// Join 加入频道，等待服务器确认
func (c *Client) Join(ctx context.Context, channel string) error {
	ch := channelName(channel)
	if err := c.send(ctx, "JOIN "+ch); err != nil {
		return err
	}

	// With the commands capability the join completes once the user and
	// room state for the channel have arrived.
	joined, userState, roomState := false, false, false
	_, err := c.waitFor(ctx, func(m *Message) (bool, error) {
		if m.Param(0) != ch {
			return false, nil
		}
		switch m.Command {
		case "JOIN":
			if m.Nick() == c.nick {
				joined = true
			}
		case "USERSTATE":
			userState = true
		case "ROOMSTATE":
			roomState = true
		case "NOTICE":
			return false, noticeError(m)
		}
		if !c.commands {
			return joined, nil
		}
		return joined && userState && roomState, nil
	})
	return err
}

// Say 发送一条频道消息
// Without the commands capability the server sends no acknowledgement and
// Say returns after the write.
func (c *Client) Say(ctx context.Context, channel, text string) error {
	ch := channelName(channel)
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	if err := c.send(ctx, "PRIVMSG "+ch+" :"+text); err != nil {
		return err
	}
	if !c.commands {
		return nil
	}

	_, err := c.waitFor(ctx, func(m *Message) (bool, error) {
		if m.Param(0) != ch {
			return false, nil
		}
		switch m.Command {
		case "USERSTATE":
			return true, nil
		case "NOTICE":
			return false, noticeError(m)
		}
		return false, nil
	})
	return err
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) send(ctx context.Context, line string) error {
	if err := c.conn.Write(ctx, websocket.MessageText, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// waitFor reads messages until match reports done or fails. PINGs are
// answered along the way.
func (c *Client) waitFor(ctx context.Context, match func(*Message) (bool, error)) (*Message, error) {
	for {
		m, err := c.next(ctx)
		if err != nil {
			return nil, err
		}
		if m.Command == "PING" {
			if err := c.send(ctx, "PONG :"+m.Trailing()); err != nil {
				return nil, err
			}
			continue
		}
		done, err := match(m)
		if err != nil {
			return nil, err
		}
		if done {
			return m, nil
		}
	}
}

// next returns the next buffered message, reading a frame when the buffer
// is empty. A frame may carry several lines.
func (c *Client) next(ctx context.Context) (*Message, error) {
	for len(c.pending) == 0 {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			m, err := ParseMessage(line)
			if err != nil {
				continue
			}
			c.pending = append(c.pending, m)
		}
	}
	m := c.pending[0]
	c.pending = c.pending[1:]
	return m, nil
}

func noticeError(m *Message) error {
	if id := m.Tags["msg-id"]; id != "" {
		return fmt.Errorf("%w: %s (%s)", ErrNotice, m.Trailing(), id)
	}
	return fmt.Errorf("%w: %s", ErrNotice, m.Trailing())
}

func channelName(channel string) string {
	return "#" + strings.ToLower(strings.TrimPrefix(channel, "#"))
}
