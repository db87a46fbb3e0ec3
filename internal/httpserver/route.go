package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/admin"
	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/catalog"
	"github.com/Skotchmaster/shopeasy/internal/checkout"
	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	API       *apiclient.Client
	Sessions  *session.Manager
	Catalog   *catalog.Service
	Carts     *cart.Registry
	Forms     *admin.Registry
	Checkouts *checkout.Registry
	Flashes   *FlashStore
	Events    events.Publisher

	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	shop := &StorefrontHTTP{d}
	carts := &CartHTTP{d}
	checkouts := &CheckoutHTTP{d}
	admins := &AdminHTTP{d}
	auths := &AuthHTTP{d}

	withSession := SessionMiddleware(d.Sessions)
	requireLogin := RequireLogin(d.Flashes)

	g := e.Group("", withSession)
	g.GET("/", shop.Home)
	g.GET("/cart/open", carts.Open)
	g.GET("/cart/close", carts.Close)

	g.GET("/login", auths.Page)
	g.POST("/login", auths.Login)
	g.POST("/register", auths.Register)
	g.POST("/logout", auths.Logout)

	cg := g.Group("/cart", requireLogin)
	cg.POST("/add/:id", carts.Add)
	cg.POST("/increase/:id", carts.Increase)
	cg.POST("/decrease/:id", carts.Decrease)
	cg.POST("/remove/:id", carts.Remove)
	cg.POST("/checkout", carts.Checkout)

	co := g.Group("/checkout", requireLogin)
	co.GET("", checkouts.Page)
	co.POST("/confirm", checkouts.Confirm)

	ag := g.Group("/admin/produtos", requireLogin)
	ag.GET("", admins.Page)
	ag.POST("", admins.Submit)
	ag.GET("/:id/edit", admins.Edit)
	ag.POST("/cancel", admins.Cancel)
	ag.POST("/:id/delete", admins.Delete)
}
