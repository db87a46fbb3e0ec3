package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/auth"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	*Deps
}

type loginPage struct {
	layout
	Register bool
	Error    string
	Username string
	Email    string
}

func (h *AuthHTTP) service(s *session.Store) *auth.Service {
	return &auth.Service{API: h.client(s)}
}

func (h *AuthHTTP) Page(c echo.Context) error {
	s := currentSession(c)
	page := loginPage{
		layout:   h.layout(c, s, "Login"),
		Register: c.QueryParam("mode") == "register",
	}
	return c.Render(http.StatusOK, "login.html", page)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")
	s := currentSession(c)
	username := c.FormValue("username")

	next, err := h.service(s).Login(ctx, s, username, c.FormValue("password"))
	if err != nil {
		status := http.StatusUnauthorized
		msg := auth.MsgBadCredentials
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusBadGateway
			msg = auth.MsgLoginUnavailable
		}
		l.Warn("login_error", "status", status, "error", err)
		page := loginPage{layout: h.layout(c, s, "Login"), Error: msg, Username: username}
		return c.Render(status, "login.html", page)
	}

	h.restoreCart(c, s)
	return redirect(c, next)
}

// restoreCart rebuilds the local cart from the account's remote cart.
func (h *AuthHTTP) restoreCart(c echo.Context, s *session.Store) {
	ctx := c.Request().Context()
	var products cart.Catalog
	if listing, err := h.Catalog.Load(ctx, h.client(s)); err == nil {
		products = listing
	}
	if err := h.cartController(s, products).Sync(ctx); err != nil {
		logging.FromContext(ctx).Warn("cart_restore_failed", "error", err)
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")
	s := currentSession(c)

	in := auth.RegisterInput{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	}
	msg, err := h.service(s).Register(ctx, in)
	if err != nil {
		l.Warn("register_error", "status", http.StatusBadRequest, "error", err)
		page := loginPage{
			layout:   h.layout(c, s, "Register"),
			Register: true,
			Error:    msg,
			Username: in.Username,
			Email:    in.Email,
		}
		return c.Render(http.StatusBadRequest, "login.html", page)
	}

	l.Info("user registered", "username", in.Username)
	h.flash(s, FlashInfo, msg)
	return redirect(c, session.LoginPath)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	s := currentSession(c)
	next, err := s.Logout(ctx)
	if err != nil {
		logging.FromContext(ctx).With("handler", "auth.logout").Error("logout_error", "error", err)
	}
	h.Carts.Delete(s.ID())
	h.Checkouts.Delete(s.ID())
	h.Forms.Delete(s.ID())
	return redirect(c, next)
}
