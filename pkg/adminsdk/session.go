package adminsdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an authenticated session. Each call replaces the token with
// the renewed one the server returns.
type Session struct {
	client *Client

	mu          sync.RWMutex
	token       string
	expiresAt   time.Time
	principalID string
	role        string
}

func newSession(client *Client, resp *SessionResponse) *Session {
	return &Session{
		client:      client,
		token:       resp.Token,
		expiresAt:   resp.ExpiresAt,
		principalID: resp.PrincipalID,
		role:        resp.Role,
	}
}

// Token returns the most recent session token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt is the expiry of the current token. It moves forward with every
// renewal; zero if the token carries no readable exp claim.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// PrincipalID is empty for sessions built with NewSessionFromToken until
// WhoAmI has been called.
func (s *Session) PrincipalID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principalID
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if exp, ok := tokenExpiry(token); ok {
		s.expiresAt = exp
	}
}

// tokenExpiry reads the exp claim without checking the signature. The
// server verifies the token on every call; the client only needs the time.
func tokenExpiry(raw string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// WhoAmI returns the identity behind the session.
func (s *Session) WhoAmI(ctx context.Context) (*SessionInfoResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/session", nil)
	if err != nil {
		return nil, err
	}

	var info SessionInfoResponse
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.principalID = info.PrincipalID
	s.role = info.Role
	s.mu.Unlock()

	return &info, nil
}

// MFAStatus returns the caller's enrollment state.
func (s *Session) MFAStatus(ctx context.Context) (*MFAStatusResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/mfa/status", nil)
	if err != nil {
		return nil, err
	}

	var status MFAStatusResponse
	if err := decodeJSON(resp, &status, http.StatusOK); err != nil {
		return nil, err
	}
	return &status, nil
}

// ResetMFA deletes another principal's credential. Requires role admin.
func (s *Session) ResetMFA(ctx context.Context, principalID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, principalPath(principalID, "mfa"), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DeactivatePrincipal blocks a principal's sessions. Requires role admin.
func (s *Session) DeactivatePrincipal(ctx context.Context, principalID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, principalPath(principalID, "deactivate"), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ActivatePrincipal reverses DeactivatePrincipal. Requires role admin.
func (s *Session) ActivatePrincipal(ctx context.Context, principalID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, principalPath(principalID, "activate"), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func principalPath(id, action string) string {
	return "/v1/admin/principals/" + url.PathEscape(id) + "/" + action
}
