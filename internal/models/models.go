package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the storefront's read copy of a backend product.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"nome"`
	Price       decimal.Decimal `json:"preco"`
	Description string          `json:"descricao"`
	ImageURL    string          `json:"imagem_url"`
	Stock       int             `json:"estoque"`

	// RawImageURL is the backend's own imagem_url, before fallbacks.
	RawImageURL string `json:"-"`
}

// StoredImageURL is the image reference to write back on update: the
// backend's imagem_url when set, the display URL otherwise.
func (p Product) StoredImageURL() string {
	if p.RawImageURL != "" {
		return p.RawImageURL
	}
	return p.ImageURL
}

type productWire struct {
	ID            int             `json:"id"`
	Name          string          `json:"nome"`
	Price         decimal.Decimal `json:"preco"`
	Description   *string         `json:"descricao"`
	ImageURLFinal *string         `json:"imagem_url_final"`
	ImageURL      *string         `json:"imagem_url"`
	Image         *string         `json:"imagem"`
	Stock         *int            `json:"estoque"`
}

// UnmarshalJSON resolves the image from imagem_url_final, then imagem_url,
// then imagem. Null optional fields decode to their zero values.
func (p *Product) UnmarshalJSON(data []byte) error {
	var w productWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Product{
		ID:          w.ID,
		Name:        w.Name,
		Price:       w.Price,
		Description: deref(w.Description),
		ImageURL:    firstNonEmpty(w.ImageURLFinal, w.ImageURL, w.Image),
		RawImageURL: deref(w.ImageURL),
	}
	if w.Stock != nil {
		p.Stock = *w.Stock
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

type RemoteCart struct {
	ID    int              `json:"id"`
	Items []RemoteCartItem `json:"itens"`
}

type RemoteCartItem struct {
	ProductID   int    `json:"produto"`
	Quantity    int    `json:"quantidade"`
	ProductName string `json:"produto_nome"`
}

// TokenPair is what the backend issues on login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SessionEntry is one persisted storage key for a browser session.
type SessionEntry struct {
	SessionID string    `gorm:"primaryKey;size:64"                  json:"session_id"`
	Key       string    `gorm:"primaryKey;size:64;column:entry_key" json:"key"`
	Value     string    `gorm:"type:text;not null"                  json:"value"`
	ExpiresAt time.Time `gorm:"index;not null"                      json:"expires_at"`
}
