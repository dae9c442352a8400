package folio

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/publish"
)

func (a *App) handlePublish(c echo.Context) error {
	var batch publish.Batch
	if err := c.Bind(&batch); err != nil {
		return badRequest("Invalid request body")
	}
	res, err := a.Publisher.Publish(c.Request().Context(), batch)
	if err != nil {
		return err
	}
	c.Logger().Infof("published %d files, %d deletions as %s", len(batch.Files), len(batch.DeletedFiles), res.CommitSHA)
	return c.JSON(http.StatusOK, res)
}
