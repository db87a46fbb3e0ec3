package cart

import (
	"sync"
	"time"

	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/shopspring/decimal"
)

type Line struct {
	Product  models.Product
	Quantity int
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is one browser's cart. Lines keep insertion order and hold at most
// one entry per product id.
type State struct {
	mu       sync.Mutex
	lines    []Line
	failures map[int]string
	open     bool

	locksMu sync.Mutex
	locks   map[int]*sync.Mutex
}

func NewState() *State {
	return &State{
		failures: map[int]string{},
		locks:    map[int]*sync.Mutex{},
	}
}

type Registry = session.Scoped[*State]

func NewRegistry(idle time.Duration) *Registry {
	return session.NewScoped(idle, NewState)
}

// lockProduct serializes mutations of one product id.
func (s *State) lockProduct(id int) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *State) index(id int) int {
	for i, l := range s.lines {
		if l.Product.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) quantity(id int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return 0, false
	}
	return s.lines[i].Quantity, true
}

func (s *State) increment(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(p.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{Product: p, Quantity: 1})
	}
	delete(s.failures, p.ID)
}

func (s *State) decrement(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		if s.lines[i].Quantity > 1 {
			s.lines[i].Quantity--
		} else {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		}
	}
	delete(s.failures, id)
}

func (s *State) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
	delete(s.failures, id)
}

func (s *State) fail(id int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = msg
}

func (s *State) replace(lines []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
	s.failures = map[int]string{}
}

func (s *State) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *State) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (s *State) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *State) Failure(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.failures[id]
	return msg, ok
}

func (s *State) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *State) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}
