package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
)

const MsgLoginRequired = "Please log in to continue."

// SessionMiddleware resolves the browser session and tags the request
// logger with it.
func SessionMiddleware(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.Load(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session storage unavailable")
			}
			req := c.Request()
			l := logging.FromContext(req.Context()).With("session_id", s.ID())
			if sub := s.Subject(); sub != "" {
				l = l.With("user_id", sub)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
			return next(c)
		}
	}
}

// RequireLogin redirects anonymous browsers to the login page.
func RequireLogin(flashes *FlashStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := currentSession(c)
			if s == nil || !s.IsAuthenticated() {
				if s != nil {
					flashes.Add(s.ID(), FlashError, MsgLoginRequired)
				}
				return c.Redirect(http.StatusSeeOther, session.LoginPath)
			}
			return next(c)
		}
	}
}
