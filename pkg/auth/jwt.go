package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safechat/safechat/pkg/model"
)

var jwtKey = []byte(secret())

func secret() string {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		return v
	}
	return "dev_secret_change_me"
}

// Claims carry the viewer identity: opaque id, display name and optional
// email. The core treats them as issued externally and immutable for the
// session.
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into an identity record.
func (c *Claims) User() model.User {
	return model.User{ID: c.UserID, DisplayName: c.DisplayName, Email: c.Email}
}

type contextKey string

const UserKey contextKey = "user"

// GenerateToken creates a new JWT token for a given identity
func GenerateToken(u model.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates a JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
