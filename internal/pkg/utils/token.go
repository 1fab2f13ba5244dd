package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/pkg/constants"
)

const authTokenTTL = 24 * time.Hour

// AuthTokenWrapper carries only who the token was issued to. Possession is proven by
// the HMAC signature.
type AuthTokenWrapper struct {
	jwt.StandardClaims
}

func signingKey() []byte {
	return []byte(viper.GetString(constants.ViperSecretKey))
}

func GenerateAuthToken(w *AuthTokenWrapper) (string, error) {
	if len(signingKey()) == 0 {
		return "", fmt.Errorf("%w: no signing key configured", constants.ErrUnauthorized)
	}

	now := time.Now()
	if w.IssuedAt == 0 {
		w.IssuedAt = now.Unix()
	}
	if w.ExpiresAt == 0 {
		w.ExpiresAt = now.Add(authTokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, w)
	signed, err := token.SignedString(signingKey())
	if err != nil {
		return "", fmt.Errorf("SignedString: %w", err)
	}
	return signed, nil
}

func ParseAuthToken(raw string) (*AuthTokenWrapper, error) {
	if len(signingKey()) == 0 {
		return nil, fmt.Errorf("%w: no signing key configured", constants.ErrUnauthorized)
	}

	var claims AuthTokenWrapper
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return signingKey(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrUnauthorized, err.Error())
	}
	if !token.Valid {
		return nil, constants.ErrUnauthorized
	}
	return &claims, nil
}
