package net

import (
	"strings"

	"github.com/go-resty/resty/v2"
)

// Auth methods understood by ApplyAuth.
const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
	AuthBasic  = "basic"
	AuthOAuth2 = "oauth2"
	AuthNone   = "none"
)

// Auth carries the credentials for one upstream.
type Auth struct {
	Method   string
	Token    string
	Header   string // header name for api_key auth, default X-API-Key
	Username string
	Password string
}

// ApplyAuth sets the auth headers on every request the client sends.
// oauth2 uses a pre-issued access token; token exchange is out of scope here.
func ApplyAuth(c *resty.Client, a Auth) {
	switch strings.ToLower(a.Method) {
	case AuthBearer, AuthOAuth2:
		if a.Token != "" {
			c.SetAuthToken(a.Token)
		}
	case AuthAPIKey:
		header := a.Header
		if header == "" {
			header = "X-API-Key"
		}
		if a.Token != "" {
			c.SetHeader(header, a.Token)
		}
	case AuthBasic:
		c.SetBasicAuth(a.Username, a.Password)
	}
}
