package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const userIDKey = "auth.user_id"

// Middleware authenticates REST requests and stores the caller's user id in
// the request context.
func (i *Issuer) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := TokenFromRequest(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token required")
			}
			claims, err := i.ValidateToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

// UserID returns the authenticated caller's id, or zero if the request did
// not pass through Middleware.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
