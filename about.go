package folio

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/pages"
	"github.com/eringen/folio/publish"
)

const aboutPath = "about.html"

// aboutUpdate is a partial About; absent fields keep the page's current value.
type aboutUpdate struct {
	Heading     *string   `json:"heading"`
	BioParas    *[]string `json:"bioParas"`
	ContactHTML *string   `json:"contactHtml"`
	HeadshotSrc *string   `json:"headshotSrc"`
	Photos      *[]string `json:"photos"`
}

func (u aboutUpdate) apply(a pages.About) pages.About {
	if u.Heading != nil {
		a.Heading = *u.Heading
	}
	if u.BioParas != nil {
		a.BioParas = *u.BioParas
	}
	if u.ContactHTML != nil {
		a.ContactHTML = *u.ContactHTML
	}
	if u.HeadshotSrc != nil {
		a.HeadshotSrc = *u.HeadshotSrc
	}
	if u.Photos != nil {
		a.Photos = *u.Photos
	}
	return a
}

// stagedFiles is the response of every editor endpoint: files to include in
// the next publish, and files it should delete.
type stagedFiles struct {
	StagedFiles  []publish.File `json:"stagedFiles"`
	DeletedFiles []string       `json:"deletedFiles,omitempty"`
}

func (a *App) handleGetAbout(c echo.Context) error {
	html, err := a.Store.GetFile(c.Request().Context(), aboutPath)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages.ParseAboutPage(html))
}

func (a *App) handlePutAbout(c echo.Context) error {
	var u aboutUpdate
	if err := c.Bind(&u); err != nil {
		return badRequest("Invalid request body")
	}
	html, err := a.Store.GetFile(c.Request().Context(), aboutPath)
	if err != nil {
		return err
	}
	about := u.apply(pages.ParseAboutPage(html))
	out, err := pages.GenerateAboutPage(a.Config.Site(), about)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stagedFiles{
		StagedFiles: []publish.File{{Path: aboutPath, Content: out}},
	})
}
