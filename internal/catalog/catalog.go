package catalog

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
)

type Lister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Service caches the product list for a TTL. A failed refresh serves the
// previous list when one exists. Concurrent refreshes share one backend
// call.
type Service struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.Mutex
	products []models.Product
	loadedAt time.Time
	loaded   bool
	gen      uint64
}

func NewService(ttl time.Duration) *Service {
	return &Service{ttl: ttl, now: time.Now}
}

func (s *Service) Load(ctx context.Context, api Lister) (*Listing, error) {
	s.mu.Lock()
	if s.loaded && s.now().Sub(s.loadedAt) < s.ttl {
		l := newListing(s.products)
		s.mu.Unlock()
		return l, nil
	}
	gen := s.gen
	s.mu.Unlock()

	// The shared call outlives any one caller's request. Callers after an
	// Invalidate start a new call.
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return api.ListProducts(context.WithoutCancel(ctx))
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.loaded {
			logging.FromContext(ctx).Warn("catalog_refresh_failed", "stale_count", len(s.products), "error", err)
			return newListing(s.products), nil
		}
		return nil, err
	}

	products := v.([]models.Product)
	switch {
	case gen == s.gen:
		s.products = products
		s.loadedAt = s.now()
		s.loaded = true
	case !s.loaded:
		s.products = products
		s.loaded = true
	}
	return newListing(products), nil
}

// Invalidate forces the next Load to refetch. The current list is kept
// as the stale fallback. A refresh already in flight is not cached as
// fresh.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedAt = time.Time{}
	s.gen++
}

// Remove drops a product from the cached list without refetching.
func (s *Service) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.products = out
}

// Listing is an immutable snapshot of the catalog.
type Listing struct {
	products []models.Product
	byID     map[int]int
}

func newListing(products []models.Product) *Listing {
	cp := make([]models.Product, len(products))
	copy(cp, products)
	byID := make(map[int]int, len(cp))
	for i, p := range cp {
		byID[p.ID] = i
	}
	return &Listing{products: cp, byID: byID}
}

func (l *Listing) Products() []models.Product {
	return l.products
}

func (l *Listing) Lookup(id int) (models.Product, bool) {
	i, ok := l.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return l.products[i], true
}

// Search matches q case-insensitively against name and description. An
// empty query returns everything.
func (l *Listing) Search(q string) []models.Product {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return l.products
	}
	var out []models.Product
	for _, p := range l.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
