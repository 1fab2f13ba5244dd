package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

func placesResponse(id string, places []domain.Place) dto.SessionResponse {
	return dto.SessionResponse{SessionID: id, Places: places}
}

func (c *Controller) CreateSession(ctx echo.Context) error {
	id, places, err := c.sessions.Create(ctx.Request().Context())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, placesResponse(id, places))
}

func (c *Controller) DeleteSession(ctx echo.Context) error {
	if err := c.sessions.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) ListPlaces(ctx echo.Context) error {
	id := ctx.Param("id")
	places, err := c.sessions.Places(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, placesResponse(id, places))
}

func (c *Controller) CreatePlace(ctx echo.Context) error {
	var req dto.CreatePlaceRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	id := ctx.Param("id")
	members, err := c.practices.Selection(ctx.Request().Context(), req.ICB, req.Districts, req.Practices, req.SelectAll)
	if err != nil {
		return err
	}

	places, err := c.sessions.CreatePlace(ctx.Request().Context(), id, domain.Place{
		Label:     req.Label,
		ICB:       req.ICB,
		Practices: members,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, placesResponse(id, places))
}

func (c *Controller) DeletePlace(ctx echo.Context) error {
	id := ctx.Param("id")
	places, err := c.sessions.DeletePlace(ctx.Request().Context(), id, pathParam(ctx, "label"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, placesResponse(id, places))
}

func (c *Controller) ResetPlaces(ctx echo.Context) error {
	id := ctx.Param("id")
	places, err := c.sessions.Reset(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, placesResponse(id, places))
}

// GetDocument returns the places document in its save/upload shape.
func (c *Controller) GetDocument(ctx echo.Context) error {
	doc, err := c.sessions.Document(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, doc)
}

// PutDocument replaces every place of the session with the uploaded document.
func (c *Controller) PutDocument(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return fmt.Errorf("%w: %s", constants.ErrInvalidInput, err.Error())
	}

	var doc dto.PlacesDocument
	if err := sonic.Unmarshal(body, &doc); err != nil {
		if errors.Is(err, constants.ErrMalformedDocument) {
			return err
		}
		return fmt.Errorf("%w: %s", constants.ErrMalformedDocument, err.Error())
	}

	id := ctx.Param("id")
	places, err := c.sessions.Import(ctx.Request().Context(), id, &doc)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, placesResponse(id, places))
}
