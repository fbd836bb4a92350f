package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// StaticTokenSource exposes a session's current access token as an
// oauth2.TokenSource. The token is not refreshed; use NewTokenSource for
// long-lived consumers.
func StaticTokenSource(s Session) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.Expiry,
	})
}

type backendTokenSource struct {
	ctx       context.Context
	backend   Backend
	sessionID string
	scopes    []string
}

// NewTokenSource returns a refreshing oauth2.TokenSource backed by the
// given session. Each Token call re-acquires silently through the
// backend, so the source stays valid as long as the refresh token does.
func NewTokenSource(ctx context.Context, backend Backend, sessionID string, scopes []string) oauth2.TokenSource {
	return &backendTokenSource{
		ctx:       ctx,
		backend:   backend,
		sessionID: sessionID,
		scopes:    append([]string(nil), scopes...),
	}
}

func (ts *backendTokenSource) Token() (*oauth2.Token, error) {
	sessions, err := ts.backend.GetSessions(ts.ctx, ts.scopes)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.ID == ts.sessionID {
			return &oauth2.Token{
				AccessToken: s.AccessToken,
				TokenType:   "Bearer",
				Expiry:      s.Expiry,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ts.sessionID)
}
