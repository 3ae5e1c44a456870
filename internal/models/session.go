package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT payload for an admin session token. The session
// replaces the original page's ambient "authenticated" flag with explicit
// per-request state.
type SessionClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}
