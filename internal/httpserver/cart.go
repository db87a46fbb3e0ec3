package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/checkout"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
)

const (
	MsgProductNotFound = "Product not found."
	MsgNotInCart       = "This item is no longer in your cart."
	MsgCatalogDown     = "Products could not be loaded."
)

type CartHTTP struct {
	*Deps
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	s := currentSession(c)

	id, err := paramID(c)
	if err != nil {
		return err
	}

	listing, err := h.Catalog.Load(ctx, h.client(s))
	if err != nil {
		l.Error("add_to_cart_error", "status", http.StatusBadGateway, "error", err)
		h.flash(s, FlashError, MsgCatalogDown)
		return redirect(c, "/")
	}

	return h.afterMutation(c, s, h.cartController(s, listing).Add(ctx, id), id, true)
}

func (h *CartHTTP) Increase(c echo.Context) error {
	s := currentSession(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	return h.afterMutation(c, s, h.cartController(s, nil).Increase(c.Request().Context(), id), id, false)
}

func (h *CartHTTP) Decrease(c echo.Context) error {
	s := currentSession(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	return h.afterMutation(c, s, h.cartController(s, nil).Decrease(c.Request().Context(), id), id, false)
}

func (h *CartHTTP) Remove(c echo.Context) error {
	s := currentSession(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}
	return h.afterMutation(c, s, h.cartController(s, nil).RemoveAll(c.Request().Context(), id), id, false)
}

// afterMutation maps a cart outcome to a flash and a redirect. Remote
// failures on an existing line are already shown next to that line.
func (h *CartHTTP) afterMutation(c echo.Context, s *session.Store, err error, id int, adding bool) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.mutation", "product_id", id)
	switch {
	case err == nil:
		l.Debug("cart_updated")
	case errors.Is(err, cart.ErrNotInCatalog):
		l.Warn("cart_mutation_rejected", "status", http.StatusNotFound, "error", err)
		h.flash(s, FlashError, MsgProductNotFound)
	case errors.Is(err, cart.ErrNotInCart):
		l.Warn("cart_mutation_rejected", "status", http.StatusConflict, "error", err)
		h.flash(s, FlashError, MsgNotInCart)
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.flash(s, FlashError, MsgLoginRequired)
		return redirect(c, session.LoginPath)
	case adding:
		h.flash(s, FlashError, cart.FailureMessage)
	}
	h.cartController(s, nil).Open()
	return redirect(c, "/")
}

// Checkout hands the current lines to the checkout page.
func (h *CartHTTP) Checkout(c echo.Context) error {
	s := currentSession(c)
	ctrl := h.cartController(s, nil)
	h.Checkouts.Get(s.ID()).Hand(checkout.Snapshot{Lines: ctrl.Lines()})
	ctrl.Close()
	return redirect(c, "/checkout")
}

func (h *CartHTTP) Open(c echo.Context) error {
	h.cartController(currentSession(c), nil).Open()
	return redirect(c, "/")
}

func (h *CartHTTP) Close(c echo.Context) error {
	h.cartController(currentSession(c), nil).Close()
	return redirect(c, "/")
}
