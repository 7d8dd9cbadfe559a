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
	"errors"
	"strings"
)

// ErrInvalidMessage is returned for lines that carry no command.
var ErrInvalidMessage = errors.New("irc: invalid message")

// Message is one parsed IRC line. A trailing parameter, if present, is the
// last element of Params.
type Message struct {
	Tags    map[string]string
	Prefix  string
	Command string
	Params  []string
}

// ParseMessage 解析一行 IRCv3 消息
// Format: [@tags ][:prefix ]command[ params][ :trailing]
func ParseMessage(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	msg := &Message{}

	if strings.HasPrefix(line, "@") {
		raw, rest, _ := strings.Cut(line[1:], " ")
		msg.Tags = parseTags(raw)
		line = strings.TrimLeft(rest, " ")
	}

	if strings.HasPrefix(line, ":") {
		msg.Prefix, line, _ = strings.Cut(line[1:], " ")
		line = strings.TrimLeft(line, " ")
	}

	var trailing string
	hasTrailing := false
	if i := strings.Index(line, " :"); i >= 0 {
		trailing = line[i+2:]
		hasTrailing = true
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrInvalidMessage
	}
	msg.Command = strings.ToUpper(fields[0])
	msg.Params = fields[1:]
	if hasTrailing {
		msg.Params = append(msg.Params, trailing)
	}
	return msg, nil
}

// Param returns the i-th parameter, or "" when absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns the last parameter.
func (m *Message) Trailing() string {
	return m.Param(len(m.Params) - 1)
}

// Nick returns the nickname part of the prefix (nick!user@host).
func (m *Message) Nick() string {
	nick := m.Prefix
	if i := strings.IndexAny(nick, "!@"); i >= 0 {
		nick = nick[:i]
	}
	return nick
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		tags[k] = unescapeTag(v)
	}
	return tags
}

var tagUnescaper = strings.NewReplacer(
	`\:`, ";",
	`\s`, " ",
	`\\`, `\`,
	`\r`, "\r",
	`\n`, "\n",
)

func unescapeTag(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	return tagUnescaper.Replace(v)
}
