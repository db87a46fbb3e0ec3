package httpserver

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type StorefrontHTTP struct {
	*Deps
}

type cartLineView struct {
	cart.Line
	Failure string
}

type cartPanel struct {
	Open  bool
	Lines []cartLineView
	Total decimal.Decimal
}

type homePage struct {
	layout
	Products   []models.Product
	LoadFailed bool
	Cart       cartPanel
}

func newCartPanel(st *cart.State) cartPanel {
	p := cartPanel{Open: st.IsOpen(), Total: st.Total()}
	for _, l := range st.Lines() {
		msg, _ := st.Failure(l.Product.ID)
		p.Lines = append(p.Lines, cartLineView{Line: l, Failure: msg})
	}
	return p
}

func (h *StorefrontHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "storefront.home")
	s := currentSession(c)

	page := homePage{layout: h.layout(c, s, "Home")}
	page.Query = strings.TrimSpace(c.QueryParam("q"))

	listing, err := h.Catalog.Load(ctx, h.client(s))
	if err != nil {
		l.Error("catalog_load_error", "error", err)
		page.LoadFailed = true
	} else {
		page.Products = listing.Search(page.Query)
	}
	page.Cart = newCartPanel(h.Carts.Get(s.ID()))

	return c.Render(http.StatusOK, "home.html", page)
}
