package httpclient

import (
	nethttp "net/http"
	"net/url"
)

// CookieSource reads cookies visible to the client. The client only reads; the
// cookies are owned by the login flow.
type CookieSource interface {
	Cookie(name string) (string, bool)
}

// jarCookieSource reads cookies the jar would send to origin.
type jarCookieSource struct {
	jar    nethttp.CookieJar
	origin *url.URL
}

func (s jarCookieSource) Cookie(name string) (string, bool) {
	if s.jar == nil {
		return "", false
	}
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// TokenFor returns the anti-forgery token to send with method. Safe methods and
// a missing cookie both yield ok=false.
func (c *Client) TokenFor(method Method) (token string, ok bool) {
	if method.IsSafe() {
		return "", false
	}
	return c.cookies.Cookie(c.config.AntiForgeryCookie)
}
