package admin

import (
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// productForm is the validated admin payload for product create/update.
type productForm struct {
	Name              string  `json:"name" validate:"required,min=2,max=200"`
	Price             int64   `json:"price" validate:"required,gt=0"`
	Description       string  `json:"description" validate:"max=2000"`
	DescriptionDetail *string `json:"description_detail,omitempty"`
	Image             string  `json:"image" validate:"omitempty,url"`
	Category          int64   `json:"category" validate:"required,gt=0"`
	Available         bool    `json:"available"`
	Unit              string  `json:"unit" validate:"required,max=50"`
	Slug              string  `json:"slug" validate:"required,max=200"`
	DiscountPrice     *int64  `json:"discount_price,omitempty" validate:"omitempty,gt=0"`
	StartDiscount     *string `json:"start_discount,omitempty"`
	EndDiscount       *string `json:"end_discount,omitempty"`
	QuantityInStock   int     `json:"quantity_in_stock" validate:"gte=0"`
	Supplier          int64   `json:"supplier" validate:"required,gt=0"`
}

func (f productForm) toInput() upstream.ProductInput {
	return upstream.ProductInput{
		Name:              f.Name,
		Price:             f.Price,
		Description:       f.Description,
		DescriptionDetail: f.DescriptionDetail,
		Image:             f.Image,
		Category:          f.Category,
		Available:         f.Available,
		Unit:              f.Unit,
		Slug:              f.Slug,
		DiscountPrice:     f.DiscountPrice,
		StartDiscount:     f.StartDiscount,
		EndDiscount:       f.EndDiscount,
		QuantityInStock:   f.QuantityInStock,
		Supplier:          f.Supplier,
	}
}

// categoryForm is the validated admin payload for category create/update.
type categoryForm struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Slug     string  `json:"slug" validate:"required,max=100"`
	Image    *string `json:"image,omitempty" validate:"omitempty,url"`
	ParentID *int64  `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}

func (f categoryForm) toInput() upstream.CategoryInput {
	return upstream.CategoryInput{Name: f.Name, Slug: f.Slug, Image: f.Image, ParentID: f.ParentID}
}

// supplierForm is the validated admin payload for supplier create/update.
type supplierForm struct {
	Name    string `json:"name" validate:"required,min=2,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=30"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (f supplierForm) toInput() upstream.SupplierInput {
	return upstream.SupplierInput{Name: f.Name, Address: f.Address, Phone: f.Phone, Email: f.Email}
}

// promotionForm is the validated admin payload for promotion create/update.
type promotionForm struct {
	Code              string `json:"code" validate:"required,min=2,max=50"`
	DiscountValue     int64  `json:"discountValue" validate:"required,gt=0"`
	DiscountType      string `json:"discountType" validate:"required,oneof=percentage fixed"`
	ValidFrom         string `json:"validFrom" validate:"required"`
	ValidTo           string `json:"validTo" validate:"required"`
	IsActive          bool   `json:"isActive"`
	MinOrderValue     int64  `json:"min_order_value" validate:"gte=0"`
	MaxDiscountAmount int64  `json:"max_discount_amount" validate:"gte=0"`
	UsageLimit        int    `json:"usage_limit" validate:"gte=0"`
}

func (f promotionForm) toInput() upstream.PromotionInput {
	return upstream.PromotionInput{
		Code:              f.Code,
		DiscountValue:     f.DiscountValue,
		DiscountType:      f.DiscountType,
		ValidFrom:         f.ValidFrom,
		ValidTo:           f.ValidTo,
		IsActive:          f.IsActive,
		MinOrderValue:     f.MinOrderValue,
		MaxDiscountAmount: f.MaxDiscountAmount,
		UsageLimit:        f.UsageLimit,
	}
}

// userForm is the validated admin payload for user create/update. Password is
// optional on update; upstream hashes it.
type userForm struct {
	Name            string  `json:"name" validate:"required,min=2,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	Password        *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role            string  `json:"role" validate:"required,oneof=user admin"`
	Address         string  `json:"address" validate:"max=500"`
	Phone           string  `json:"phone" validate:"max=30"`
	Avatar          *string `json:"avatar,omitempty" validate:"omitempty,url"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (f userForm) toInput() upstream.UserInput {
	return upstream.UserInput{
		Name:            f.Name,
		Email:           f.Email,
		Password:        f.Password,
		Role:            f.Role,
		Address:         f.Address,
		Phone:           f.Phone,
		Avatar:          f.Avatar,
		DeliveryAddress: f.DeliveryAddress,
		IsActive:        f.IsActive,
	}
}
