package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the session mode.
type Claims struct {
	jwt.RegisteredClaims
	Mode Mode `json:"mode"`
}

func GenerateToken(mode Mode, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Mode: mode,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetModeFromToken validates tokenString and returns its mode.
func GetModeFromToken(tokenString string, secretKey []byte) (Mode, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || !claims.Mode.valid() {
		return "", common.ErrInvalidToken
	}

	return claims.Mode, nil
}
