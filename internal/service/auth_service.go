package service

import (
	"errors"
	"time"

	"examsim/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNotStudent   = errors.New("token does not identify a student")
)

// accessTokenType is the token_type claim of tokens issued by the session backend
const accessTokenType = "access"

// AuthService validates the student access tokens issued by the session
// backend. Both sides share the HS256 secret.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService(secret string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret)}
}

// GenerateStudentToken issues an access token in the backend's format.
// Used by tooling and tests; production tokens come from the backend.
func (s *AuthService) GenerateStudentToken(userID int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &model.StudentClaims{
		UserID:    userID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateStudentToken validates an access JWT and returns its claims
func (s *AuthService) ValidateStudentToken(tokenString string) (*model.StudentClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.StudentClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.StudentClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" && claims.TokenType != accessTokenType {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, ErrNotStudent
	}

	return claims, nil
}
