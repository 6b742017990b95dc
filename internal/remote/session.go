package remote

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// ErrNoToken is returned by ParseSession for an empty token.
var ErrNoToken = errors.New("session token is empty")

// userClaims are the claim names the authority has used for the user id,
// in order of preference after "sub".
var userClaims = []string{"id", "userId", "_id"}

// ParseSession derives a session from a bearer token. JWT claims are read
// without verification, since only the authority can verify them; they
// only name the user. Opaque tokens get a stable id derived from the
// token itself. An expired JWT is accepted with a warning and left for the
// authority to reject.
func ParseSession(token string) (progress.Session, error) {
	if token == "" {
		return progress.Session{}, ErrNoToken
	}
	session := progress.Session{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		session.UserID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)).String()
		slog.Debug("opaque session token", "user_id", session.UserID)
		return session, nil
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		session.UserID = sub
	}
	for _, name := range userClaims {
		if session.UserID != "" {
			break
		}
		if v, ok := claims[name].(string); ok {
			session.UserID = v
		}
	}
	if session.UserID == "" {
		session.UserID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)).String()
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		slog.Warn("session token has expired", "user_id", session.UserID, "expired_at", exp.Time)
	}
	return session, nil
}
