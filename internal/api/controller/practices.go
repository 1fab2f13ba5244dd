package controller

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

func pathParam(ctx echo.Context, name string) string {
	v := ctx.Param(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func (c *Controller) ListICBs(ctx echo.Context) error {
	icbs, err := c.practices.ICBs(ctx.Request().Context())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, icbs)
}

func (c *Controller) ListDistricts(ctx echo.Context) error {
	districts, err := c.practices.Districts(ctx.Request().Context(), pathParam(ctx, "icb"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, districts)
}

// ListPractices accepts repeated ?district= filters.
func (c *Controller) ListPractices(ctx echo.Context) error {
	districts := ctx.QueryParams()["district"]

	options, err := c.practices.Practices(ctx.Request().Context(), pathParam(ctx, "icb"), districts)
	if err != nil {
		return err
	}
	if options == nil {
		options = []dto.PracticeOption{}
	}

	return ctx.JSON(http.StatusOK, options)
}

func (c *Controller) LoginAdmin(ctx echo.Context) error {
	var req dto.AdminLoginRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	token, err := c.auth.LoginAdmin(ctx.Request().Context(), req.Secret)
	if err != nil {
		return err
	}

	ctx.SetCookie(&http.Cookie{
		Name:     constants.CookieKeySecretToken,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) Backfill(ctx echo.Context) error {
	var req dto.BackfillRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	rows, err := c.practices.Backfill(ctx.Request().Context(), req.Path, req.Sheet)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, dto.BackfillResponse{Rows: rows})
}
