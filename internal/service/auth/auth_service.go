package auth

import (
	"context"
	"crypto/subtle"

	"github.com/golang-jwt/jwt"

	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/utils"
)

// Service issues admin tokens for the maintenance endpoints (dataset backfill).
type Service struct {
	secret string
}

func NewAuthService(secret string) *Service {
	return &Service{secret: secret}
}

// LoginAdmin exchanges the configured secret for a signed token.
func (svc *Service) LoginAdmin(ctx context.Context, secret string) (string, error) {
	if svc.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(svc.secret)) != 1 {
		logger.Warnf(ctx, "admin login rejected")
		return "", constants.ErrUnauthorized
	}

	token, err := utils.GenerateAuthToken(&utils.AuthTokenWrapper{
		StandardClaims: jwt.StandardClaims{Subject: constants.AdminTokenSubject},
	})
	if err != nil {
		return "", err
	}

	logger.Debugf(ctx, "admin login accepted")
	return token, nil
}
