package httpserver

import (
	"net/http"
	"strconv"

	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/middleware/csrf"
	"github.com/labstack/echo/v4"
)

// layout is the data every page template shares.
type layout struct {
	Title         string
	CSRF          string
	Query         string
	Authenticated bool
	CartCount     int
	Flashes       []Flash
}

func currentSession(c echo.Context) *session.Store {
	s, _ := session.FromContext(c)
	return s
}

func (d *Deps) layout(c echo.Context, s *session.Store, title string) layout {
	return layout{
		Title:         title,
		CSRF:          csrf.Token(c),
		Authenticated: s.IsAuthenticated(),
		CartCount:     d.Carts.Get(s.ID()).Count(),
		Flashes:       d.Flashes.Take(s.ID()),
	}
}

func (d *Deps) client(s *session.Store) *apiclient.Client {
	return d.API.WithCredentials(s)
}

func (d *Deps) publisher() events.Publisher {
	if d.Events == nil {
		return events.Noop{}
	}
	return d.Events
}

func (d *Deps) cartController(s *session.Store, products cart.Catalog) *cart.Controller {
	return &cart.Controller{
		State:     d.Carts.Get(s.ID()),
		Remote:    d.client(s),
		Catalog:   products,
		Events:    d.publisher(),
		SessionID: s.ID(),
		UserID:    s.Subject(),
	}
}

func (d *Deps) flash(s *session.Store, kind, msg string) {
	d.Flashes.Add(s.ID(), kind, msg)
}

func paramID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}
