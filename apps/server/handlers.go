package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/ridwanf/dmrelay/pkg/auth"
	"github.com/ridwanf/dmrelay/pkg/model"
	"github.com/ridwanf/dmrelay/pkg/presence"
	"github.com/ridwanf/dmrelay/pkg/store"
)

type api struct {
	users    store.UserStore
	messages store.MessageStore
	issuer   *auth.Issuer
	registry *presence.Registry
	mirror   *presence.Mirror // nil when redis is not configured
	logger   *slog.Logger
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (a *api) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user, err := a.users.CreateUser(c.Request().Context(), req.Name, req.Email, string(hash))
	if errors.Is(err, model.ErrEmailTaken) {
		return echo.NewHTTPError(http.StatusBadRequest, "email already registered")
	}
	if err != nil {
		a.logger.Error("creating user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	return a.session(c, user)
}

func (a *api) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := a.users.UserByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		a.logger.Error("fetching user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	return a.session(c, user)
}

func (a *api) session(c echo.Context, user model.User) error {
	token, err := a.issuer.GenerateToken(user.ID)
	if err != nil {
		a.logger.Error("generating token", "user_id", user.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}
	return c.JSON(http.StatusOK, sessionResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	})
}

// listUsers returns every account except the caller's.
func (a *api) listUsers(c echo.Context) error {
	users, err := a.users.ListUsersExcept(c.Request().Context(), auth.UserID(c))
	if err != nil {
		a.logger.Error("listing users", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}
	return c.JSON(http.StatusOK, users)
}

// history returns the caller's conversation with :other, oldest first. A
// storage failure is a failure, never silently partial data.
func (a *api) history(c echo.Context) error {
	other, err := strconv.ParseInt(c.Param("other"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	messages, err := a.messages.Range(c.Request().Context(), auth.UserID(c), other)
	if err != nil {
		a.logger.Error("reading history", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve history")
	}
	return c.JSON(http.StatusOK, messages)
}

// onlineUsers reports who currently has a live connection. The redis mirror
// answers when configured, otherwise the in-memory registry.
func (a *api) onlineUsers(c echo.Context) error {
	if a.mirror != nil {
		ids, err := a.mirror.Online(c.Request().Context())
		if err != nil {
			a.logger.Error("reading presence mirror", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch presence")
		}
		return c.JSON(http.StatusOK, ids)
	}
	return c.JSON(http.StatusOK, a.registry.Online())
}
