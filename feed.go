package folio

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/feed"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

type feedResponse struct {
	Posts []feed.Post `json:"posts"`
}

func (a *App) handleSocialFeed(c echo.Context) error {
	limit := defaultFeedLimit
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxFeedLimit)
		}
	}
	posts, err := a.Feed.Get(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "s-maxage=1800, stale-while-revalidate=3600")
	return c.JSON(http.StatusOK, feedResponse{Posts: posts})
}
