package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionAudience  = "session"
	downloadAudience = "download"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims identifies the account behind an API call.
type SessionClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// DownloadClaims scopes a link to a single download grant.
type DownloadClaims struct {
	UserID     string `json:"userId"`
	FileID     string `json:"fileId"`
	DocumentID string `json:"documentId"`
	DownloadID string `json:"downloadId"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed session JWT for the provided account.
func GenerateToken(secret string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a session token and returns its claims.
func ParseToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := parse(secret, tokenString, sessionAudience, claims); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateDownloadToken signs a short-lived link token for one download grant.
func GenerateDownloadToken(secret string, claims DownloadClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.DownloadID,
		Audience:  jwt.ClaimStrings{downloadAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(secret))
}

// ParseDownloadToken validates a download link token.
func ParseDownloadToken(secret, tokenString string) (*DownloadClaims, error) {
	claims := &DownloadClaims{}
	if err := parse(secret, tokenString, downloadAudience, claims); err != nil {
		return nil, err
	}
	if claims.DocumentID == "" || claims.DownloadID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parse(secret, tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
