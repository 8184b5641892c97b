package security

import (
	"crypto/subtle"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService validates credentials on the admin/bot surface: HS256 bearer
// tokens issued by the admin dashboard, and the static bot API key.
type AuthService struct {
	JWTSecret    string
	UpdateAPIKey string
}

func NewAuthService(secret, updateAPIKey string) *AuthService {
	return &AuthService{
		JWTSecret:    secret,
		UpdateAPIKey: updateAPIKey,
	}
}

// ValidateToken checks signature and expiry and returns the token subject.
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token: 'sub' claim missing or not a string")
		}
		return sub, nil
	}

	return "", errors.New("invalid token")
}

// ValidateAPIKey compares the bot API key in constant time.
func (a *AuthService) ValidateAPIKey(key string) bool {
	if a.UpdateAPIKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.UpdateAPIKey), []byte(key)) == 1
}
