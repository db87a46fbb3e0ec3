package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/checkout"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CheckoutHTTP struct {
	*Deps
}

type checkoutPage struct {
	layout
	Lines   []cart.Line
	Total   decimal.Decimal
	Loading bool
}

func (h *CheckoutHTTP) Page(c echo.Context) error {
	s := currentSession(c)
	st := h.Checkouts.Get(s.ID())
	snap := st.Snapshot()

	page := checkoutPage{
		layout:  h.layout(c, s, "Checkout"),
		Lines:   snap.Lines,
		Total:   snap.Total(),
		Loading: st.Loading(),
	}
	return c.Render(http.StatusOK, "checkout.html", page)
}

// Confirm places the order. On success the local cart is rebuilt from the
// remote cart and the browser goes home.
func (h *CheckoutHTTP) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.confirm")
	s := currentSession(c)

	ctrl := &checkout.Controller{
		State:     h.Checkouts.Get(s.ID()),
		Orders:    h.client(s),
		Events:    h.publisher(),
		SessionID: s.ID(),
		UserID:    s.Subject(),
	}
	msg, err := ctrl.Confirm(ctx)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) || errors.Is(err, checkout.ErrInProgress) {
			l.Warn("confirm_order_rejected", "status", http.StatusConflict, "error", err)
		} else {
			l.Error("confirm_order_error", "status", http.StatusBadGateway, "error", err)
		}
		h.flash(s, FlashError, msg)
		return redirect(c, "/checkout")
	}

	h.flash(s, FlashInfo, msg)
	listing, lerr := h.Catalog.Load(ctx, h.client(s))
	var products cart.Catalog
	if lerr == nil {
		products = listing
	}
	if err := h.cartController(s, products).Sync(ctx); err != nil {
		l.Warn("cart_resync_failed", "error", err)
	}
	l.Info("order confirmed")
	return redirect(c, "/")
}
