package session

import (
	"time"

	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CookieSID  = "sid"
	contextKey = "session"
)

// Manager resolves the per-request Store. It is injected into handlers
// explicitly.
type Manager struct {
	backend Backend
	secure  bool
	ttl     time.Duration
}

func NewManager(backend Backend, secure bool, ttl time.Duration) *Manager {
	return &Manager{backend: backend, secure: secure, ttl: ttl}
}

// Load returns the Store for the browser behind c, issuing a new sid
// cookie on first visit. Repeated calls within a request share one Store.
func (m *Manager) Load(c echo.Context) (*Store, error) {
	if s, ok := c.Get(contextKey).(*Store); ok {
		return s, nil
	}

	sid := m.browserID(c)
	ctx := c.Request().Context()
	s, err := Open(ctx, sid, m.backend.Storage(c, sid))
	if err != nil {
		logging.FromContext(ctx).Error("session_load_failed", "backend", m.backend.Name(), "error", err)
		return nil, err
	}
	c.Set(contextKey, s)
	return s, nil
}

func (m *Manager) browserID(c echo.Context) string {
	if ck, err := c.Cookie(CookieSID); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			return ck.Value
		}
	}
	sid := uuid.NewString()
	c.SetCookie(CreateCookie(CookieSID, sid, "/", time.Now().Add(m.ttl), m.secure))
	c.Request().AddCookie(CreateCookie(CookieSID, sid, "/", time.Time{}, m.secure))
	return sid
}

// FromContext returns the Store loaded earlier in this request, if any.
func FromContext(c echo.Context) (*Store, bool) {
	s, ok := c.Get(contextKey).(*Store)
	return s, ok
}
