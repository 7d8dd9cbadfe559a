package api

import (
	"html/template"
	"net/http"
)

const promptHTML = `<html><head><title>Twitch Auth Sample</title></head>
<a href="/auth/{{.Provider}}">Connect with Twitch</a></html>`

const profileHTML = `<html><head><title>Twitch Auth Sample</title></head>
<table>
    <tr><th>Access Token</th><td>{{.AccessToken}}</td></tr>
    <tr><th>Refresh Token</th><td>{{.RefreshToken}}</td></tr>
    <tr><th>Display Name</th><td>{{.DisplayName}}</td></tr>
    <tr><th>Description</th><td>{{.Description}}</td></tr>
    <tr><th>Profile Image</th><td><img src="{{.ProfileImageURL}}" width="36" /></td></tr>
    <tr><th>Chat Message Sent</th><td>{{.ChatSent}}</td></tr>
{{- if .ChatStatus}}
    <tr><th>Chat Status</th><td>{{.ChatStatus}}</td></tr>
{{- end}}
</table></html>`

// Renderer writes the HTML pages. Every value is escaped for the context it
// appears in.
type Renderer struct {
	provider string
	prompt   *template.Template
	profile  *template.Template
}

// NewRenderer creates a Renderer whose prompt links to provider's login route.
func NewRenderer(provider string) *Renderer {
	return &Renderer{
		provider: provider,
		prompt:   template.Must(template.New("prompt").Parse(promptHTML)),
		profile:  template.Must(template.New("profile").Parse(profileHTML)),
	}
}

// Prompt renders the unauthenticated page.
func (v *Renderer) Prompt(w http.ResponseWriter) error {
	writeHTML(w)
	return v.prompt.Execute(w, struct{ Provider string }{v.provider})
}

// Profile renders the authenticated page.
func (v *Renderer) Profile(w http.ResponseWriter, p *ProfileView) error {
	writeHTML(w)
	return v.profile.Execute(w, p)
}

func writeHTML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}
