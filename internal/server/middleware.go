package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/F0laf0lu/Chat-API/internal/auth"
	apperrors "github.com/F0laf0lu/Chat-API/internal/errors"
)

// requireAuth validates the bearer token and stores the caller's identity
// in the request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		claims, err := auth.ParseToken(s.jwtConfig, token)
		if err != nil {
			return apperrors.UnauthorizedError("invalid or expired token")
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("isAdmin", claims.Admin)
		return next(c)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
