package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/F0laf0lu/Chat-API/internal/auth"
	"github.com/F0laf0lu/Chat-API/internal/domain"
	apperrors "github.com/F0laf0lu/Chat-API/internal/errors"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.DateJoined,
	}
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" {
		return apperrors.ValidationError("username is required")
	}
	if len(req.Password) < 8 {
		return apperrors.ValidationError("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError("failed to hash password", err)
	}

	user, err := s.users.Create(c.Request().Context(), req.Username, req.FirstName, req.LastName, hash)
	if errors.Is(err, domain.ErrUsernameTaken) {
		return apperrors.ConflictError("username already taken").WithField("username", req.Username)
	}
	if err != nil {
		return apperrors.InternalError("failed to create user", err)
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	user, err := s.users.GetByUsername(c.Request().Context(), req.Username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Same response as a wrong password, so usernames can't be probed.
		return apperrors.UnauthorizedError("invalid credentials")
	}
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return apperrors.UnauthorizedError("invalid credentials")
	}

	token, err := auth.NewToken(s.jwtConfig, user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return apperrors.InternalError("failed to issue token", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"access": token})
}

func (s *Server) handleGetUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}

	user, err := s.users.GetByID(c.Request().Context(), userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}
