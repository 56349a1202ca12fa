package model

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// StudentClaims are the claims of an access token issued by the session service.
// The same token is forwarded when calling the service on the student's behalf.
type StudentClaims struct {
	UserID    int    `json:"user_id"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// StudentID is the key used for per-student state
func (c *StudentClaims) StudentID() string {
	return strconv.Itoa(c.UserID)
}
