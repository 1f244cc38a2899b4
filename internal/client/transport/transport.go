// Package transport provides the http.RoundTripper that authenticates
// outgoing API requests and transparently recovers from access-token expiry.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Session is what the transport needs from the session layer: the current
// access token and the shared refresh cycle. Implemented by session.Manager.
type Session interface {
	AccessToken() (string, bool)
	Refresh(ctx context.Context) error
}

// AuthTransport decorates a base RoundTripper. Every request gets the
// current access token attached; a 401 response triggers one refresh and
// one replay with the new token. A second 401 is returned as-is.
type AuthTransport struct {
	base    http.RoundTripper
	session Session
}

func NewAuthTransport(base http.RoundTripper, session Session) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{base: base, session: session}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := t.session.AccessToken()

	authed := req.Clone(req.Context())
	if ok {
		authed.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(authed)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// A 401 from the refresh endpoint means the refresh token itself is
	// dead; retrying would loop.
	if isRefreshPath(req.URL.Path) {
		return resp, nil
	}

	// A body we cannot re-read cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	// Another request may have refreshed the session while this one was
	// in flight. If the token already changed, replay with it directly.
	current, ok := t.session.AccessToken()
	if !ok || current == token {
		// The refresh failing leaves the original 401 as the caller's
		// answer; the session layer decides separately whether the
		// session survives.
		if err := t.session.Refresh(req.Context()); err != nil {
			return resp, nil
		}
		current, ok = t.session.AccessToken()
		if !ok {
			return resp, nil
		}
	}
	token = current

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	return t.base.RoundTrip(retry)
}

func isRefreshPath(path string) bool {
	return strings.HasSuffix(path, "/auth/refresh")
}
