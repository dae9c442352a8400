package folio

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/auth"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	token, err := a.Gate.IssueToken(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.loginLimiter.Record(ip)
			c.Logger().Warnf("failed admin login from %s", ip)
		}
		return err
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// requireAdmin accepts a valid bearer token, or the same token carried by the
// admin session cookie.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if a.Gate.Verify(c.Request().Header.Get(echo.HeaderAuthorization)) {
			return next(c)
		}
		if token := sessionToken(c); token != "" && a.Gate.VerifyToken(token) {
			return next(c)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
}
