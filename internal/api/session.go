package api

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Session carries the access token and the user it belongs to. Session
// lifecycle (refresh, revocation) is owned by the caller; the sync engine
// only presents the token.
type Session struct {
	AccessToken string
	UserID      int64
}

// SessionFromToken builds a Session from a raw access token by reading the
// user id out of the token's subject claim.
//
// The claims are parsed without signature verification: the client is not
// the token's audience and has no key material; the remote verifies the
// token on every request. The id is a local convenience only.
func SessionFromToken(token string) (Session, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Session{}, fmt.Errorf("parse access token: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, fmt.Errorf("access token has no subject claim: %w", err)
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("access token subject %q is not a user id: %w", sub, err)
	}
	return Session{AccessToken: token, UserID: uid}, nil
}
