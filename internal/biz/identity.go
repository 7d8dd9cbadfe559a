package biz

import "time"

// Profile is the user record returned by the provider's user-info endpoint.
type Profile struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	ViewCount       int64     `json:"view_count"`
	Email           string    `json:"email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Identity is the authenticated user bound to a session: the profile plus
// the tokens issued by the provider.
type Identity struct {
	Profile
	AccessToken  string
	RefreshToken string

	// ChatSent reports whether the demonstration chat message was sent
	// during the last home page render of this session.
	ChatSent bool
}

// ChatName returns the name used to log into chat and to pick the channel.
// Chat logins are the lowercase account name, the display name is only a
// fallback for providers that do not report one.
func (i *Identity) ChatName() string {
	if i.Login != "" {
		return i.Login
	}
	return i.DisplayName
}
