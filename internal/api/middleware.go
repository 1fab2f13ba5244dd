package api

import (
	"github.com/labstack/echo/v4"

	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/utils"
)

// SessionMiddleware tags the request logger with the session id.
func (svc *APIService) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := ctx.Param("id")
		if id == "" {
			id = ctx.Request().Header.Get(constants.HeaderSessionID)
		}
		if id != "" {
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(logger.WithFields(req.Context(), "session", id)))
		}

		return next(ctx)
	}
}

func (svc *APIService) AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(constants.CookieKeySecretToken)
		if err != nil {
			return constants.ErrUnauthorized
		}

		token, err := utils.ParseAuthToken(cookie.Value)
		if err != nil {
			return err
		}

		if token.Subject != constants.AdminTokenSubject {
			return constants.ErrUnauthorized
		}

		return next(ctx)
	}
}
