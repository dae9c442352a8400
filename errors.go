package folio

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/auth"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/feed"
	"github.com/eringen/folio/imaging"
	"github.com/eringen/folio/publish"
)

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// httpStatus maps an error returned by a handler to its status code and the
// message sent to the client.
func httpStatus(err error) (int, string) {
	var (
		he       *echo.HTTPError
		upstream *content.UpstreamError
		graph    *feed.UpstreamError
	)
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
		if he.Code == http.StatusMethodNotAllowed {
			msg = "Method not allowed"
		}
		return he.Code, msg
	case errors.Is(err, auth.ErrPasswordRequired):
		return http.StatusBadRequest, "Password required"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, publish.ErrNoChanges),
		errors.Is(err, publish.ErrInvalidPath),
		errors.Is(err, publish.ErrInvalidEncoding),
		errors.Is(err, imaging.ErrDecode):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &upstream), errors.As(err, &graph):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, feed.ErrNoToken):
		return http.StatusInternalServerError, "Instagram token not configured"
	}
	return http.StatusInternalServerError, err.Error()
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := httpStatus(err)
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
