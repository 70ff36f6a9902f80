package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIError is a non-401 error response from the server, carrying the
// human-readable message from its JSON body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client talks to the PasarLink server over HTTP. The session rides in a
// cookie jar, so one signed-in Client serves all engine instances.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		message := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Error != "" {
			message = errBody.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// --- Auth ---

// Login signs in and stores the session cookie in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.do(ctx, "POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

// Logout clears the session server-side and drops the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/auth/logout", nil, nil)
}

// --- Catalog ---

// CatalogProduct is a product offered by another shop.
type CatalogProduct struct {
	ID       uuid.UUID
	Name     string
	Price    decimal.Decimal
	StockQty int32
	ImageURL string
}

type wireProduct struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	StockQty int32     `json:"stock_qty"`
	ImageURL *string   `json:"image_url"`
}

// FetchCatalog lists every other shop's products.
func (c *Client) FetchCatalog(ctx context.Context) ([]CatalogProduct, error) {
	var wire []wireProduct
	if err := c.do(ctx, "GET", "/catalog", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]CatalogProduct, len(wire))
	for i, p := range wire {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", p.Name, err)
		}
		out[i] = CatalogProduct{ID: p.ID, Name: p.Name, Price: price, StockQty: p.StockQty}
		if p.ImageURL != nil {
			out[i].ImageURL = *p.ImageURL
		}
	}
	return out, nil
}

// --- Cart ---

type wireCartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	Product   struct {
		Name     string  `json:"name"`
		Price    string  `json:"price"`
		Image    *string `json:"image"`
		StockQty int32   `json:"stock_qty"`
	} `json:"product"`
}

func (c *Client) FetchCart(ctx context.Context) ([]CartLine, error) {
	var wire []wireCartLine
	if err := c.do(ctx, "GET", "/cart", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]CartLine, len(wire))
	for i, w := range wire {
		price, err := decimal.NewFromString(w.Product.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", w.Product.Name, err)
		}
		out[i] = CartLine{
			ProductID: w.ProductID,
			Quantity:  w.Quantity,
			Product: Product{
				Name:     w.Product.Name,
				Price:    price,
				StockQty: w.Product.StockQty,
			},
		}
		if w.Product.Image != nil {
			out[i].Product.Image = *w.Product.Image
		}
	}
	return out, nil
}

func (c *Client) MutateCart(ctx context.Context, productID uuid.UUID, delta int32) (int32, error) {
	var out struct {
		Quantity int32 `json:"quantity"`
	}
	err := c.do(ctx, "POST", "/cart", map[string]interface{}{
		"product_id": productID.String(),
		"quantity":   delta,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Quantity, nil
}

func (c *Client) RemoveCartLine(ctx context.Context, productID uuid.UUID) error {
	return c.do(ctx, "DELETE", "/cart/"+productID.String(), nil, nil)
}

func (c *Client) ValidateCart(ctx context.Context) (CartValidation, error) {
	var wire struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			ProductName string `json:"product_name"`
			Available   int32  `json:"available"`
			Requested   int32  `json:"requested"`
		} `json:"errors"`
	}
	if err := c.do(ctx, "GET", "/cart/validate", nil, &wire); err != nil {
		return CartValidation{}, err
	}
	v := CartValidation{Valid: wire.Valid}
	for _, e := range wire.Errors {
		v.Errors = append(v.Errors, Shortfall{
			ProductName: e.ProductName,
			Available:   e.Available,
			Requested:   e.Requested,
		})
	}
	return v, nil
}

// Checkout places the order from the current cart.
func (c *Client) Checkout(ctx context.Context) (Order, error) {
	var wire wireOrder
	if err := c.do(ctx, "POST", "/checkout", nil, &wire); err != nil {
		return Order{}, err
	}
	return wire.toOrder()
}

// --- Orders ---

type wireOrderItem struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Qty         int32     `json:"qty"`
	UnitPrice   string    `json:"unit_price"`
	Status      string    `json:"status"`
}

type wireOrder struct {
	ID          uuid.UUID       `json:"id"`
	TotalAmount string          `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []wireOrderItem `json:"items"`
}

func (w wireOrder) toOrder() (Order, error) {
	total, err := decimal.NewFromString(w.TotalAmount)
	if err != nil {
		return Order{}, fmt.Errorf("parse order total: %w", err)
	}
	order := Order{ID: w.ID, TotalAmount: total, CreatedAt: w.CreatedAt}
	for _, item := range w.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return Order{}, fmt.Errorf("parse unit price of %s: %w", item.ProductName, err)
		}
		order.Items = append(order.Items, OrderItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Qty:         item.Qty,
			UnitPrice:   price,
			Status:      item.Status,
		})
	}
	return order, nil
}

func (c *Client) FetchOrders(ctx context.Context) ([]Order, error) {
	var wire []wireOrder
	if err := c.do(ctx, "GET", "/orders", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]Order, len(wire))
	for i, w := range wire {
		order, err := w.toOrder()
		if err != nil {
			return nil, err
		}
		out[i] = order
	}
	return out, nil
}

func (c *Client) FetchOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var wire wireOrder
	if err := c.do(ctx, "GET", "/orders/"+id.String(), nil, &wire); err != nil {
		return Order{}, err
	}
	return wire.toOrder()
}

type wireSaleItem struct {
	wireOrderItem
	OrderID   uuid.UUID `json:"order_id"`
	BuyerShop string    `json:"buyer_shop"`
	CreatedAt time.Time `json:"created_at"`
}

// FetchSales lists the caller's incoming order items, newest first.
func (c *Client) FetchSales(ctx context.Context) ([]SaleItem, error) {
	var wire []wireSaleItem
	if err := c.do(ctx, "GET", "/sales", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]SaleItem, len(wire))
	for i, w := range wire {
		price, err := decimal.NewFromString(w.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("parse unit price of %s: %w", w.ProductName, err)
		}
		out[i] = SaleItem{
			OrderItem: OrderItem{
				ID:          w.ID,
				ProductID:   w.ProductID,
				ProductName: w.ProductName,
				Qty:         w.Qty,
				UnitPrice:   price,
				Status:      w.Status,
			},
			OrderID:   w.OrderID,
			BuyerShop: w.BuyerShop,
			CreatedAt: w.CreatedAt,
		}
	}
	return out, nil
}

func (c *Client) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status string) error {
	return c.do(ctx, "PATCH", "/order-items/"+itemID.String(), map[string]string{
		"status": status,
	}, nil)
}
