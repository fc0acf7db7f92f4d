package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/resilience"
	"github.com/noah-isme/storefront-gateway/internal/session"
)

// Client is the typed consumer of the upstream commerce REST API. Idempotent
// reads go through retry + circuit breaking; writes are single-shot.
type Client struct {
	baseURL string
	reads   resilience.HTTPClient
	writes  resilience.HTTPClient
}

// Config groups Client dependencies.
type Config struct {
	BaseURL         string
	HTTPClient      *http.Client
	Breaker         *resilience.Breaker
	ReadMaxAttempts int
	BaseBackoff     time.Duration
	Timeout         time.Duration
}

// NewClient constructs a Client instance.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if httpClient.Transport == nil {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	readAttempts := cfg.ReadMaxAttempts
	if readAttempts <= 0 {
		readAttempts = 3
	}
	reads := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     cfg.Breaker,
		BaseBackoff: cfg.BaseBackoff,
		MaxAttempts: readAttempts,
		Jitter:      0.2,
		Timeout:     cfg.Timeout,
	}
	writes := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     cfg.Breaker,
		MaxAttempts: 1,
		Timeout:     cfg.Timeout,
	}
	return &Client{baseURL: base, reads: reads, writes: writes}, nil
}

// Ping probes the upstream API for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/products", nil)
}

// Products lists the full product catalog.
func (c *Client) Products(ctx context.Context) ([]catalog.Product, error) {
	var docs []productDoc
	if err := c.get(ctx, "/products", &docs); err != nil {
		return nil, err
	}
	return toProducts(docs), nil
}

// ProductByID fetches a single product.
func (c *Client) ProductByID(ctx context.Context, id int64) (catalog.Product, error) {
	var doc productDoc
	if err := c.get(ctx, fmt.Sprintf("/products/%d", id), &doc); err != nil {
		return catalog.Product{}, err
	}
	return doc.toProduct(), nil
}

// ProductsByCategory lists products filed under a category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	var docs []productDoc
	if err := c.get(ctx, fmt.Sprintf("/categories/%d/products", categoryID), &docs); err != nil {
		return nil, err
	}
	return toProducts(docs), nil
}

// CreateProduct creates a product (admin).
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (catalog.Product, error) {
	var doc productDoc
	if err := c.write(ctx, http.MethodPost, "/products", in, &doc); err != nil {
		return catalog.Product{}, err
	}
	return doc.toProduct(), nil
}

// UpdateProduct updates a product (admin).
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (catalog.Product, error) {
	var doc productDoc
	if err := c.write(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), in, &doc); err != nil {
		return catalog.Product{}, err
	}
	return doc.toProduct(), nil
}

// DeleteProduct removes a product (admin).
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil)
}

// Categories lists all categories.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.get(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory creates a category (admin).
func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (catalog.Category, error) {
	var out catalog.Category
	if err := c.write(ctx, http.MethodPost, "/categories", in, &out); err != nil {
		return catalog.Category{}, err
	}
	return out, nil
}

// UpdateCategory updates a category (admin).
func (c *Client) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (catalog.Category, error) {
	var out catalog.Category
	if err := c.write(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), in, &out); err != nil {
		return catalog.Category{}, err
	}
	return out, nil
}

// DeleteCategory removes a category (admin).
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

// Suppliers lists all suppliers.
func (c *Client) Suppliers(ctx context.Context) ([]catalog.Supplier, error) {
	var out []catalog.Supplier
	if err := c.get(ctx, "/suppliers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SupplierByID fetches a supplier.
func (c *Client) SupplierByID(ctx context.Context, id int64) (catalog.Supplier, error) {
	var out catalog.Supplier
	if err := c.get(ctx, fmt.Sprintf("/suppliers/%d", id), &out); err != nil {
		return catalog.Supplier{}, err
	}
	return out, nil
}

// CreateSupplier creates a supplier (admin).
func (c *Client) CreateSupplier(ctx context.Context, in SupplierInput) (catalog.Supplier, error) {
	var out catalog.Supplier
	if err := c.write(ctx, http.MethodPost, "/suppliers", in, &out); err != nil {
		return catalog.Supplier{}, err
	}
	return out, nil
}

// UpdateSupplier updates a supplier (admin).
func (c *Client) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (catalog.Supplier, error) {
	var out catalog.Supplier
	if err := c.write(ctx, http.MethodPut, fmt.Sprintf("/suppliers/%d", id), in, &out); err != nil {
		return catalog.Supplier{}, err
	}
	return out, nil
}

// DeleteSupplier removes a supplier (admin).
func (c *Client) DeleteSupplier(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/suppliers/%d", id), nil, nil)
}

// CartItems lists the caller's cart.
func (c *Client) CartItems(ctx context.Context) ([]CartItem, error) {
	var docs []cartItemDoc
	if err := c.get(ctx, "/cart-items", &docs); err != nil {
		return nil, err
	}
	items := make([]CartItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toCartItem())
	}
	return items, nil
}

// AddCartItem appends a product to the cart.
func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int) (CartItem, error) {
	payload := map[string]any{"productId": productID, "quantity": quantity}
	var doc cartItemDoc
	if err := c.write(ctx, http.MethodPost, "/cart-items", payload, &doc); err != nil {
		return CartItem{}, err
	}
	return doc.toCartItem(), nil
}

// UpdateCartItem changes a cart line's quantity.
func (c *Client) UpdateCartItem(ctx context.Context, id int64, quantity int) (CartItem, error) {
	payload := map[string]any{"quantity": quantity}
	var doc cartItemDoc
	if err := c.write(ctx, http.MethodPatch, fmt.Sprintf("/cart-items/%d", id), payload, &doc); err != nil {
		return CartItem{}, err
	}
	return doc.toCartItem(), nil
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/cart-items/%d", id), nil, nil)
}

// ClearCartItems empties the cart after a successful order.
func (c *Client) ClearCartItems(ctx context.Context) error {
	return c.write(ctx, http.MethodDelete, "/cart-items", nil, nil)
}

// Promotions lists the promotion catalog.
func (c *Client) Promotions(ctx context.Context) ([]promo.Promotion, error) {
	var out []promo.Promotion
	if err := c.get(ctx, "/promotions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PromotionByCode looks up a promotion by exact code.
func (c *Client) PromotionByCode(ctx context.Context, code string) (promo.Promotion, error) {
	var out promo.Promotion
	if err := c.get(ctx, "/promotions/code/"+url.PathEscape(code), &out); err != nil {
		if IsNotFound(err) {
			return promo.Promotion{}, promo.ErrNotFound
		}
		return promo.Promotion{}, err
	}
	return out, nil
}

// PromotionByID fetches a promotion (admin).
func (c *Client) PromotionByID(ctx context.Context, id int64) (promo.Promotion, error) {
	var out promo.Promotion
	if err := c.get(ctx, fmt.Sprintf("/promotions/%d", id), &out); err != nil {
		return promo.Promotion{}, err
	}
	return out, nil
}

// CreatePromotion creates a promotion (admin).
func (c *Client) CreatePromotion(ctx context.Context, in PromotionInput) (promo.Promotion, error) {
	var out promo.Promotion
	if err := c.write(ctx, http.MethodPost, "/promotions", in, &out); err != nil {
		return promo.Promotion{}, err
	}
	return out, nil
}

// UpdatePromotion updates a promotion (admin).
func (c *Client) UpdatePromotion(ctx context.Context, id int64, in PromotionInput) (promo.Promotion, error) {
	var out promo.Promotion
	if err := c.write(ctx, http.MethodPut, fmt.Sprintf("/promotions/%d", id), in, &out); err != nil {
		return promo.Promotion{}, err
	}
	return out, nil
}

// DeletePromotion removes a promotion (admin).
func (c *Client) DeletePromotion(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/promotions/%d", id), nil, nil)
}

// TogglePromotion flips a promotion's active flag (admin).
func (c *Client) TogglePromotion(ctx context.Context, id int64) (promo.Promotion, error) {
	var out promo.Promotion
	if err := c.write(ctx, http.MethodPatch, fmt.Sprintf("/promotions/%d/toggle", id), nil, &out); err != nil {
		return promo.Promotion{}, err
	}
	return out, nil
}

// PaymentMethods lists the accepted payment methods.
func (c *Client) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var out []PaymentMethod
	if err := c.get(ctx, "/payment-methods", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (Order, error) {
	var out Order
	if err := c.write(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// Orders lists the caller's orders.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.get(ctx, "/orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderByID fetches a single order.
func (c *Client) OrderByID(ctx context.Context, id int64) (Order, error) {
	var out Order
	if err := c.get(ctx, fmt.Sprintf("/orders/%d", id), &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// ConfirmOrder moves a pending order to confirmed. Admin action.
func (c *Client) ConfirmOrder(ctx context.Context, id int64) (Order, error) {
	var out Order
	if err := c.write(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/confirm", id), nil, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// ConfirmDelivery marks a shipped order delivered. Customer action.
func (c *Client) ConfirmDelivery(ctx context.Context, id int64) (Order, error) {
	var out Order
	if err := c.write(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/deliver", id), nil, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// Feedbacks lists the product ratings visible to the caller.
func (c *Client) Feedbacks(ctx context.Context) ([]Feedback, error) {
	var docs []feedbackDoc
	if err := c.get(ctx, "/feedbacks", &docs); err != nil {
		return nil, err
	}
	out := make([]Feedback, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toFeedback())
	}
	return out, nil
}

// CreateFeedback submits a product rating.
func (c *Client) CreateFeedback(ctx context.Context, in FeedbackInput) (Feedback, error) {
	var doc feedbackDoc
	if err := c.write(ctx, http.MethodPost, "/feedbacks", in, &doc); err != nil {
		return Feedback{}, err
	}
	return doc.toFeedback(), nil
}

// Notifications lists the admin inbox.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := c.get(ctx, "/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users lists upstream accounts.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserByID fetches a user.
func (c *Client) UserByID(ctx context.Context, id int64) (User, error) {
	var out User
	if err := c.get(ctx, fmt.Sprintf("/users/%d", id), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// CreateUser creates a user (admin).
func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	var out User
	if err := c.write(ctx, http.MethodPost, "/users", in, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// UpdateUser updates a user (admin).
func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) (User, error) {
	var out User
	if err := c.write(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), in, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// DeleteUser removes a user (admin).
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// Login authenticates against the upstream API and returns the bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.write(ctx, http.MethodPost, "/auth/login", payload, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("upstream: login response missing token")
	}
	return out.Token, nil
}

// Register creates a customer account.
func (c *Client) Register(ctx context.Context, in RegisterInput) (User, error) {
	var out User
	if err := c.write(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// ChatMessages fetches the conversation with the given counterpart.
func (c *Client) ChatMessages(ctx context.Context, receiverID int64) ([]ChatMessage, error) {
	var out []ChatMessage
	if err := c.get(ctx, fmt.Sprintf("/chat-messages/%d", receiverID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendChatMessage posts a message to the counterpart.
func (c *Client) SendChatMessage(ctx context.Context, receiverID int64, message string) (ChatMessage, error) {
	payload := map[string]any{"receiverId": receiverID, "message": message}
	var out ChatMessage
	if err := c.write(ctx, http.MethodPost, "/chat-messages", payload, &out); err != nil {
		return ChatMessage{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.reads, http.MethodGet, path, nil, out)
}

func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, c.writes, method, path, body, out)
}

func (c *Client) do(ctx context.Context, hc resilience.HTTPClient, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess, ok := session.FromContext(ctx); ok && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	resp, err := hc.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		} else if payload.Error.Message != "" {
			apiErr.Message = payload.Error.Message
		}
	}
	return apiErr
}

func toProducts(docs []productDoc) []catalog.Product {
	products := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toProduct())
	}
	return products
}
