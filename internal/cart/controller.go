package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/shopspring/decimal"
)

var (
	ErrNotInCatalog = errors.New("product not in catalog")
	ErrNotInCart    = errors.New("product not in cart")
)

const FailureMessage = "Could not update this item. Please try again."

type Remote interface {
	AddCartItem(ctx context.Context, productID, quantity int) error
	RemoveCartItem(ctx context.Context, productID, quantity int) error
	MyCart(ctx context.Context) (models.RemoteCart, error)
}

type Catalog interface {
	Lookup(id int) (models.Product, bool)
}

// Controller mirrors cart mutations to the remote cart. Local state only
// changes after the remote call succeeds; a failure is recorded against
// the product and cleared by its next successful mutation.
type Controller struct {
	State     *State
	Remote    Remote
	Catalog   Catalog
	Events    events.Publisher
	SessionID string
	UserID    string
}

func (c *Controller) Add(ctx context.Context, productID int) error {
	p, ok := c.lookup(productID)
	if !ok {
		return ErrNotInCatalog
	}
	unlock := c.State.lockProduct(productID)
	defer unlock()

	if err := c.Remote.AddCartItem(ctx, productID, 1); err != nil {
		return c.failed(ctx, "add", productID, err)
	}
	c.State.increment(p)
	c.State.SetOpen(true)
	c.publish(ctx, events.CartItemAdded, productID, 1)
	return nil
}

func (c *Controller) Increase(ctx context.Context, productID int) error {
	unlock := c.State.lockProduct(productID)
	defer unlock()

	line, ok := c.line(productID)
	if !ok {
		return ErrNotInCart
	}
	if err := c.Remote.AddCartItem(ctx, productID, 1); err != nil {
		return c.failed(ctx, "increase", productID, err)
	}
	c.State.increment(line.Product)
	c.publish(ctx, events.CartItemAdded, productID, 1)
	return nil
}

// Decrease removes one unit; the line disappears when its last unit goes.
func (c *Controller) Decrease(ctx context.Context, productID int) error {
	unlock := c.State.lockProduct(productID)
	defer unlock()

	if _, ok := c.State.quantity(productID); !ok {
		return ErrNotInCart
	}
	if err := c.Remote.RemoveCartItem(ctx, productID, 1); err != nil {
		return c.failed(ctx, "decrease", productID, err)
	}
	c.State.decrement(productID)
	c.publish(ctx, events.CartItemRemoved, productID, 1)
	return nil
}

// RemoveAll removes the line, asking the remote cart to drop its full
// current quantity.
func (c *Controller) RemoveAll(ctx context.Context, productID int) error {
	unlock := c.State.lockProduct(productID)
	defer unlock()

	qty, ok := c.State.quantity(productID)
	if !ok {
		return ErrNotInCart
	}
	if err := c.Remote.RemoveCartItem(ctx, productID, qty); err != nil {
		return c.failed(ctx, "remove_all", productID, err)
	}
	c.State.remove(productID)
	c.publish(ctx, events.CartItemRemoved, productID, qty)
	return nil
}

func (c *Controller) Total() decimal.Decimal { return c.State.Total() }

func (c *Controller) Lines() []Line { return c.State.Lines() }

func (c *Controller) Count() int { return c.State.Count() }

func (c *Controller) Open()  { c.State.SetOpen(true) }
func (c *Controller) Close() { c.State.SetOpen(false) }

// Sync replaces the local lines with the remote cart. Products missing from
// the catalog keep the remote name and a zero price.
func (c *Controller) Sync(ctx context.Context) error {
	remote, err := c.Remote.MyCart(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("cart_sync_failed", "session_id", c.SessionID, "error", err)
		return fmt.Errorf("fetch remote cart: %w", err)
	}

	var lines []Line
	pos := map[int]int{}
	for _, item := range remote.Items {
		if item.Quantity <= 0 {
			continue
		}
		if i, ok := pos[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		p, ok := c.lookup(item.ProductID)
		if !ok {
			p = models.Product{ID: item.ProductID, Name: item.ProductName}
		}
		pos[item.ProductID] = len(lines)
		lines = append(lines, Line{Product: p, Quantity: item.Quantity})
	}
	c.State.replace(lines)
	return nil
}

func (c *Controller) lookup(id int) (models.Product, bool) {
	if c.Catalog == nil {
		return models.Product{}, false
	}
	return c.Catalog.Lookup(id)
}

func (c *Controller) line(id int) (Line, bool) {
	for _, l := range c.State.Lines() {
		if l.Product.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

func (c *Controller) failed(ctx context.Context, op string, productID int, err error) error {
	c.State.fail(productID, FailureMessage)
	logging.FromContext(ctx).Error("cart_mutation_failed",
		"op", op,
		"product_id", productID,
		"session_id", c.SessionID,
		"error", err,
	)
	return fmt.Errorf("%s product %d: %w", op, productID, err)
}

func (c *Controller) publish(ctx context.Context, typ string, productID, qty int) {
	if c.Events == nil {
		return
	}
	err := c.Events.Publish(ctx, events.Event{
		Type:      typ,
		SessionID: c.SessionID,
		UserID:    c.UserID,
		ProductID: productID,
		Quantity:  qty,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}
