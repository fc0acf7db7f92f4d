package upstream

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
)

// CartItem is a cart line as served by the upstream API.
type CartItem struct {
	ID        int64           `json:"_id"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   catalog.Product `json:"product"`
}

// PaymentMethod is a raw payment method entry before normalisation.
type PaymentMethod struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is an upstream account record.
type User struct {
	ID              int64   `json:"_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	Address         string  `json:"address"`
	Phone           string  `json:"phone"`
	Avatar          *string `json:"avatar,omitempty"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	ID       int64           `json:"_id"`
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Order is a created order as returned by the upstream API.
type Order struct {
	ID          int64       `json:"_id"`
	User        User        `json:"user"`
	OrderItems  []OrderItem `json:"orderItems"`
	TotalAmount int64       `json:"totalAmount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// OrderItemInput references a product when placing an order.
type OrderItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderInput is the order creation payload.
type OrderInput struct {
	UserID          int64            `json:"userId"`
	TotalAmount     int64            `json:"totalAmount"`
	Status          string           `json:"status"`
	ShippingAddress string           `json:"shipping_address"`
	ShippingFee     int64            `json:"shipping_fee"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentStatus   string           `json:"payment_status"`
	OrderItems      []OrderItemInput `json:"orderItems"`
	PromotionCode   string           `json:"promotion_code,omitempty"`
}

// Feedback is a product rating a customer left after a delivered order.
type Feedback struct {
	ID        int64           `json:"_id"`
	Rating    int             `json:"rating"`
	Comment   string          `json:"comment"`
	Product   catalog.Product `json:"product"`
	User      User            `json:"user"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FeedbackInput is the rating submission payload.
type FeedbackInput struct {
	ProductID int64  `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	UserID    int64  `json:"userId"`
}

// Notification is an admin inbox entry raised by upstream order events.
type Notification struct {
	ID        int64     `json:"_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is a single message on the chat channel.
type ChatMessage struct {
	ID         int64     `json:"_id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProductInput is the admin product create/update payload.
type ProductInput struct {
	Name              string  `json:"name"`
	Price             int64   `json:"price"`
	Description       string  `json:"description"`
	DescriptionDetail *string `json:"description_detail,omitempty"`
	Image             string  `json:"image"`
	Category          int64   `json:"category"`
	Available         bool    `json:"available"`
	Unit              string  `json:"unit"`
	Slug              string  `json:"slug"`
	DiscountPrice     *int64  `json:"discount_price,omitempty"`
	StartDiscount     *string `json:"start_discount,omitempty"`
	EndDiscount       *string `json:"end_discount,omitempty"`
	QuantityInStock   int     `json:"quantity_in_stock"`
	Supplier          int64   `json:"supplier"`
}

// CategoryInput is the admin category create/update payload.
type CategoryInput struct {
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Image    *string `json:"image,omitempty"`
	ParentID *int64  `json:"parent_id,omitempty"`
}

// SupplierInput is the admin supplier create/update payload.
type SupplierInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// UserInput is the admin user create/update payload.
type UserInput struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        *string `json:"password,omitempty"`
	Role            string  `json:"role"`
	Address         string  `json:"address"`
	Phone           string  `json:"phone"`
	Avatar          *string `json:"avatar,omitempty"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// PromotionInput is the admin promotion create/update payload.
type PromotionInput struct {
	Code              string `json:"code"`
	DiscountValue     int64  `json:"discountValue"`
	DiscountType      string `json:"discountType"`
	ValidFrom         string `json:"validFrom"`
	ValidTo           string `json:"validTo"`
	IsActive          bool   `json:"isActive"`
	MinOrderValue     int64  `json:"min_order_value"`
	MaxDiscountAmount int64  `json:"max_discount_amount"`
	UsageLimit        int    `json:"usage_limit"`
}

// RegisterInput is the customer registration payload.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Avatar          string `json:"avatar"`
	DeliveryAddress string `json:"delivery_address"`
}

// productDoc mirrors the upstream product document. Discount window bounds
// arrive as strings and category/supplier are sometimes absent or malformed;
// both normalise into the explicit optionals of catalog.Product.
type productDoc struct {
	ID                int64           `json:"_id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Price             int64           `json:"price"`
	Description       string          `json:"description"`
	DescriptionDetail *string         `json:"description_detail"`
	Image             string          `json:"image"`
	Unit              string          `json:"unit"`
	Available         bool            `json:"available"`
	QuantityInStock   int             `json:"quantity_in_stock"`
	DiscountPrice     *int64          `json:"discount_price"`
	StartDiscount     string          `json:"start_discount"`
	EndDiscount       string          `json:"end_discount"`
	Category          json.RawMessage `json:"category"`
	Supplier          json.RawMessage `json:"supplier"`
	AverageRating     *float64        `json:"averageRating"`
	TotalFeedbacks    *int            `json:"totalFeedbacks"`
}

func (d productDoc) toProduct() catalog.Product {
	p := catalog.Product{
		ID:                d.ID,
		Name:              d.Name,
		Slug:              d.Slug,
		Price:             d.Price,
		Description:       d.Description,
		DescriptionDetail: d.DescriptionDetail,
		Image:             d.Image,
		Unit:              d.Unit,
		Available:         d.Available,
		QuantityInStock:   d.QuantityInStock,
		DiscountPrice:     d.DiscountPrice,
		StartDiscount:     catalog.ParseDiscountBound(d.StartDiscount),
		EndDiscount:       catalog.ParseDiscountBound(d.EndDiscount),
		AverageRating:     d.AverageRating,
		TotalFeedbacks:    d.TotalFeedbacks,
	}
	if len(d.Category) > 0 {
		var c catalog.Category
		if err := json.Unmarshal(d.Category, &c); err == nil && c.Name != "" {
			p.Category = &c
		}
	}
	if len(d.Supplier) > 0 {
		var s catalog.Supplier
		if err := json.Unmarshal(d.Supplier, &s); err == nil && s.Name != "" {
			p.Supplier = &s
		}
	}
	return p
}

// feedbackDoc mirrors the upstream feedback document.
type feedbackDoc struct {
	ID        int64      `json:"_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	Product   productDoc `json:"product"`
	User      User       `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (d feedbackDoc) toFeedback() Feedback {
	return Feedback{
		ID:        d.ID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		Product:   d.Product.toProduct(),
		User:      d.User,
		CreatedAt: d.CreatedAt,
	}
}

// cartItemDoc mirrors the upstream cart item document.
type cartItemDoc struct {
	ID        int64      `json:"_id"`
	ProductID int64      `json:"productId"`
	Quantity  int        `json:"quantity"`
	Product   productDoc `json:"product"`
}

func (d cartItemDoc) toCartItem() CartItem {
	return CartItem{
		ID:        d.ID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		Product:   d.Product.toProduct(),
	}
}
