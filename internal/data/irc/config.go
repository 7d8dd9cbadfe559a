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

import "net/http"

const (
	defaultURL = "wss://irc-ws.chat.twitch.tv:443"
)

// Config 聊天客户端配置
type Config struct {
	// URL WebSocket endpoint of the chat service
	// Optional. Default: wss://irc-ws.chat.twitch.tv:443
	URL string `json:"url"`

	// Token OAuth access token, with or without the "oauth:" prefix
	// Required
	Token string `json:"-"`

	// Nick login name; lowercased before use
	// Required
	Nick string `json:"nick"`

	// HTTPClient HTTP client used for the WebSocket handshake
	// Optional. Default: http.DefaultClient
	HTTPClient *http.Client `json:"-"`
}

// getURL 获取 URL，使用默认值
func (c *Config) getURL() string {
	if c.URL == "" {
		return defaultURL
	}
	return c.URL
}
