package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/kanban/internal/adapters/http"
	"github.com/taskmaster/kanban/internal/ports"
)

// SessionCookie is the cookie that carries the access token
const SessionCookie = "token"

// tokenFromRequest prefers the session cookie over the Authorization header
func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate validates the request token and stores the identity in the
// context. It reports whether the request carried a valid token.
func (s *Server) authenticate(c echo.Context, authService ports.AuthService) bool {
	token := tokenFromRequest(c)
	if token == "" {
		return false
	}

	claims, err := authService.ValidateToken(token)
	if err != nil {
		s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
			"error": err.Error(),
			"path":  c.Request().URL.Path,
		})
		return false
	}

	c.Set(httpHandlers.ContextUserID, claims.UserID)
	c.Set(httpHandlers.ContextUserEmail, claims.Email)
	c.Set(httpHandlers.ContextUserName, claims.Name)
	return true
}

// authMiddleware rejects requests without a valid token
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.authenticate(c, authService) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			return next(c)
		}
	}
}

// optionalAuthMiddleware attaches the identity when present and never rejects
func (s *Server) optionalAuthMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.authenticate(c, authService)
			return next(c)
		}
	}
}
