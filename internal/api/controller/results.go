package controller

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/export"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (c *Controller) sessionResults(ctx echo.Context) ([]domain.Place, domain.Table, error) {
	places, err := c.sessions.Places(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, domain.Table{}, err
	}

	table, err := c.allocation.RoundedResults(ctx.Request().Context(), places)
	if err != nil {
		return nil, domain.Table{}, err
	}
	return places, table, nil
}

func (c *Controller) GetResults(ctx echo.Context) error {
	_, table, err := c.sessionResults(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, table)
}

func (c *Controller) GetSummary(ctx echo.Context) error {
	label := pathParam(ctx, "label")
	places, err := c.sessions.Places(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var place *domain.Place
	for i := range places {
		if places[i].Label == label {
			place = &places[i]
			break
		}
	}
	if place == nil {
		return fmt.Errorf("%w: %q", constants.ErrNotFound, label)
	}

	summary, err := c.allocation.Summary(ctx.Request().Context(), places, *place)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, summary)
}

func attach(ctx echo.Context, contentType, fileName string, write func(w io.Writer) error) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	res.WriteHeader(http.StatusOK)
	return write(res)
}

func (c *Controller) ExportCSV(ctx echo.Context) error {
	_, table, err := c.sessionResults(ctx)
	if err != nil {
		return err
	}

	return attach(ctx, "text/csv", export.CSVFileName, func(w io.Writer) error {
		return export.WriteCSV(w, table)
	})
}

func (c *Controller) ExportXLSX(ctx echo.Context) error {
	_, table, err := c.sessionResults(ctx)
	if err != nil {
		return err
	}

	return attach(ctx, mimeXLSX, export.XLSXFileName, func(w io.Writer) error {
		return export.WriteXLSX(w, table)
	})
}

// ExportBundle downloads the calculations together with the places document for re-upload.
func (c *Controller) ExportBundle(ctx echo.Context) error {
	places, table, err := c.sessionResults(ctx)
	if err != nil {
		return err
	}

	doc := dto.NewPlacesDocument(places)
	return attach(ctx, "application/zip", export.BundleFileName, func(w io.Writer) error {
		return export.WriteBundle(w, table, doc)
	})
}
