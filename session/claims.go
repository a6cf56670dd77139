package session

import (
	"time"

	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// AccessTokenExpiry reads the exp claim of the current access token without
// verifying its signature. The result is for display only; the server remains
// the authority on validity.
func (m *Manager) AccessTokenExpiry() (time.Time, error) {
	s, ok := m.Session()
	if !ok {
		return time.Time{}, autherrors.ErrNotAuthenticated
	}
	return TokenExpiry(s.AccessToken)
}

// TokenExpiry parses raw as a JWT without verification and returns its exp claim.
func TokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "parse access token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "read exp claim")
	}
	if exp == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return exp.Time, nil
}
