package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
)

var (
	ErrValidation   = errors.New("invalid product")
	ErrNotFound     = errors.New("product not found")
	ErrNotConfirmed = errors.New("delete not confirmed")
)

const (
	MsgInvalid       = "Fill in name, price (> 0) and stock (>= 0) correctly."
	MsgNotFound      = "Product not found."
	MsgCreated       = "Product created successfully!"
	MsgUpdated       = "Product updated successfully!"
	MsgSaveFailed    = "Error saving product."
	MsgDeleted       = "Product deleted."
	MsgDeleteFailed  = "Error deleting product."
	MsgConfirmDelete = "Are you sure you want to delete this product?"
)

type Backend interface {
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	PostMultipart(ctx context.Context, path string, form apiclient.Form, out any) error
	PutMultipart(ctx context.Context, path string, form apiclient.Form, out any) error
	DeleteProduct(ctx context.Context, id int) error
}

type Products interface {
	Lookup(id int) (models.Product, bool)
}

type Cache interface {
	Invalidate()
	Remove(id int)
}

type Controller struct {
	Form      *Form
	API       Backend
	Products  Products
	Cache     Cache
	Events    events.Publisher
	SessionID string
}

// Edit loads a product from the current list into the draft.
func (c *Controller) Edit(id int) error {
	p, ok := c.Products.Lookup(id)
	if !ok {
		return ErrNotFound
	}
	c.Form.load(p)
	return nil
}

func (c *Controller) Cancel() {
	c.Form.reset()
}

func (c *Controller) SetFields(in Input) {
	c.Form.set(in)
}

type productPayload struct {
	Name        string      `json:"nome"`
	Price       json.Number `json:"preco"`
	Description string      `json:"descricao"`
	Stock       int         `json:"estoque"`
	ImageURL    string      `json:"imagem_url"`
}

// Submit validates the draft and saves it. A draft carrying an image file
// is sent as multipart; otherwise as JSON with the image URL. On success
// the returned message confirms the save and the form returns to New.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	d, editing := c.Form.Snapshot()
	if d.Name == "" || !d.Price.IsPositive() || d.Stock < 0 {
		return MsgInvalid, ErrValidation
	}

	path := apiclient.PathProducts
	if editing {
		path = apiclient.ProductPath(d.ID)
	}

	var err error
	if d.Image != nil {
		form := multipartForm(d)
		if editing {
			err = c.API.PutMultipart(ctx, path, form, nil)
		} else {
			err = c.API.PostMultipart(ctx, path, form, nil)
		}
	} else {
		body := productPayload{
			Name:        d.Name,
			Price:       json.Number(d.Price.String()),
			Description: d.Description,
			Stock:       d.Stock,
			ImageURL:    d.ImageURL,
		}
		if editing {
			err = c.API.Put(ctx, path, body, nil)
		} else {
			err = c.API.Post(ctx, path, body, nil)
		}
	}

	log := logging.FromContext(ctx).With("handler", "admin_submit", "product_id", d.ID, "multipart", d.Image != nil)
	if err != nil {
		log.Error("product_save_failed", "error", err)
		return MsgSaveFailed, fmt.Errorf("save product: %w", err)
	}

	c.Form.reset()
	if c.Cache != nil {
		c.Cache.Invalidate()
	}
	c.publish(ctx, events.ProductSaved, d.ID)
	log.Info("product_saved")

	if editing {
		return MsgUpdated, nil
	}
	return MsgCreated, nil
}

func multipartForm(d Draft) apiclient.Form {
	var f apiclient.Form
	f.Add("nome", d.Name)
	f.Add("preco", d.Price.String())
	f.Add("descricao", d.Description)
	f.Add("estoque", strconv.Itoa(d.Stock))
	f.AddFile("imagem", d.Image.Filename, d.Image.ContentType, d.Image.Data)
	return f
}

// Delete removes a product after explicit confirmation. Without it the
// product is marked pending and ErrNotConfirmed is returned with the
// confirmation prompt.
func (c *Controller) Delete(ctx context.Context, id int, confirmed bool) (string, error) {
	if !confirmed {
		c.Form.setPendingDelete(id)
		return MsgConfirmDelete, ErrNotConfirmed
	}
	c.Form.setPendingDelete(0)

	if err := c.API.DeleteProduct(ctx, id); err != nil {
		logging.FromContext(ctx).Error("product_delete_failed", "product_id", id, "error", err)
		return MsgDeleteFailed, fmt.Errorf("delete product %d: %w", id, err)
	}
	if c.Cache != nil {
		c.Cache.Remove(id)
	}
	c.publish(ctx, events.ProductDeleted, id)
	return MsgDeleted, nil
}

func (c *Controller) publish(ctx context.Context, typ string, productID int) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Publish(ctx, events.Event{Type: typ, SessionID: c.SessionID, ProductID: productID}); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}
