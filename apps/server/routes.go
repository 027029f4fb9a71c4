package main

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newEcho(a *api, ws *wsHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	e.POST("/api/register", a.register)
	e.POST("/api/login", a.login)

	authed := a.issuer.Middleware()
	e.GET("/api/users", a.listUsers, authed)
	e.GET("/api/messages/:other", a.history, authed)
	e.GET("/api/presence", a.onlineUsers, authed)

	// The websocket handler does its own credential check before upgrading.
	e.GET("/ws", ws.handle)

	return e
}
