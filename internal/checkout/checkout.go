package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart  = errors.New("cart is empty")
	ErrInProgress = errors.New("order confirmation in progress")
)

const (
	MsgEmpty      = "Your cart is empty."
	MsgConfirmed  = "Order confirmed!"
	MsgFailed     = "Could not confirm the order. Please try again."
	MsgInProgress = "Your order is already being confirmed."
)

// Snapshot is the cart as handed over from the catalog page. It is not
// refetched before confirmation.
type Snapshot struct {
	Lines []cart.Line
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

// State is one browser's checkout page.
type State struct {
	mu       sync.Mutex
	snapshot Snapshot
	loading  bool
}

func NewState() *State { return &State{} }

type Registry = session.Scoped[*State]

func NewRegistry(idle time.Duration) *Registry {
	return session.NewScoped(idle, NewState)
}

// Hand stores the snapshot the checkout page will render.
func (s *State) Hand(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *State) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *State) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

type Orders interface {
	CreateOrder(ctx context.Context) error
}

type Controller struct {
	State     *State
	Orders    Orders
	Events    events.Publisher
	SessionID string
	UserID    string
}

// Confirm places the order for the handed-over snapshot. There is no
// retry; the loading flag is cleared whatever the outcome.
func (c *Controller) Confirm(ctx context.Context) (string, error) {
	snap := c.State.Snapshot()
	if snap.Empty() {
		return MsgEmpty, ErrEmptyCart
	}
	if !c.State.begin() {
		return MsgInProgress, ErrInProgress
	}
	defer c.State.end()

	log := logging.FromContext(ctx).With("handler", "checkout_confirm", "session_id", c.SessionID)
	if err := c.Orders.CreateOrder(ctx); err != nil {
		log.Error("order_confirm_failed", "error", err)
		return MsgFailed, fmt.Errorf("create order: %w", err)
	}

	c.State.Hand(Snapshot{})
	log.Info("order_confirmed", "lines", len(snap.Lines), "total", snap.Total().StringFixed(2))
	if c.Events != nil {
		ev := events.Event{Type: events.OrderConfirmed, SessionID: c.SessionID, UserID: c.UserID}
		if err := c.Events.Publish(ctx, ev); err != nil {
			log.Warn("event_publish_failed", "type", ev.Type, "error", err)
		}
	}
	return MsgConfirmed, nil
}
