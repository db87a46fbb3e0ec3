package admin

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/shopspring/decimal"
)

// Draft is the product being created or edited. ID is 0 for a new product.
type Draft struct {
	ID          int
	Name        string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Image       *ImageFile
	Stock       int
}

type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input is the raw admin form as submitted.
type Input struct {
	Name        string
	Price       string
	Description string
	ImageURL    string
	Stock       string
	Image       *ImageFile
}

// Form is one browser's admin form state: New when not editing,
// Editing(id) otherwise.
type Form struct {
	mu            sync.Mutex
	draft         Draft
	editing       bool
	pendingDelete int
}

func NewForm() *Form { return &Form{} }

type Registry = session.Scoped[*Form]

func NewRegistry(idle time.Duration) *Registry {
	return session.NewScoped(idle, NewForm)
}

func (f *Form) Snapshot() (Draft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft, f.editing
}

func (f *Form) PendingDelete() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingDelete
}

func (f *Form) load(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = Draft{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.StoredImageURL(),
		Stock:       p.Stock,
	}
	f.editing = true
}

func (f *Form) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = Draft{}
	f.editing = false
}

// set copies in into the draft, keeping the id of the product being
// edited. Unparsable price becomes 0 and unparsable stock becomes -1 so
// validation rejects them. The image file is only the one attached to
// this submission.
func (f *Form) set(in Input) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		price = decimal.Zero
	}
	stock := 0
	if s := strings.TrimSpace(in.Stock); s != "" {
		if stock, err = strconv.Atoi(s); err != nil {
			stock = -1
		}
	}
	f.draft.Name = strings.TrimSpace(in.Name)
	f.draft.Price = price
	f.draft.Description = in.Description
	f.draft.ImageURL = strings.TrimSpace(in.ImageURL)
	f.draft.Stock = stock
	f.draft.Image = in.Image
}

func (f *Form) setPendingDelete(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingDelete = id
}
