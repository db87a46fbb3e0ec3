package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/shopeasy/internal/models"
)

const (
	PathToken        = "token/"
	PathTokenRefresh = "token/refresh/"
	PathRegister     = "register/"
	PathProducts     = "produtos/"
	PathMyCart       = "carrinhos/meu-carrinho/"
	PathCartAdd      = "carrinhos/adicionar-item/"
	PathCartRemove   = "carrinhos/remover-item/"
	PathOrders       = "pedidos/"
)

func ProductPath(id int) string {
	return PathProducts + strconv.Itoa(id) + "/"
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type cartItemRequest struct {
	ProductID int `json:"produto"`
	Quantity  int `json:"quantidade"`
}

func (c *Client) IssueToken(ctx context.Context, username, password string) (models.TokenPair, error) {
	var pair models.TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.Post(ctx, PathToken, body, &pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) RefreshToken(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair
	if err := c.Post(ctx, PathTokenRefresh, map[string]string{"refresh": refresh}, &pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.Post(ctx, PathRegister, req, nil)
}

// ListProducts accepts both the paginated {"results": [...]} shape and a
// bare array.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, PathProducts, &raw); err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

func decodeProducts(raw json.RawMessage) ([]models.Product, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
	case '{':
		var page struct {
			Results []models.Product `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode products page: %w", err)
		}
		products = page.Results
	default:
		return nil, fmt.Errorf("decode products: unexpected shape")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.Delete(ctx, ProductPath(id), nil, nil)
}

func (c *Client) AddCartItem(ctx context.Context, productID, quantity int) error {
	return c.Post(ctx, PathCartAdd, cartItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, productID, quantity int) error {
	return c.Delete(ctx, PathCartRemove, cartItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (c *Client) MyCart(ctx context.Context) (models.RemoteCart, error) {
	var cart models.RemoteCart
	if err := c.Get(ctx, PathMyCart, &cart); err != nil {
		return models.RemoteCart{}, err
	}
	return cart, nil
}

func (c *Client) CreateOrder(ctx context.Context) error {
	return c.Post(ctx, PathOrders, struct{}{}, nil)
}
