package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type OrderItem struct {
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	VariantIndex int                `bson:"variantIndex" json:"variantIndex"`
	Title        string             `bson:"title" json:"title"`
	SKU          string             `bson:"sku" json:"sku"`
	UnitPrice    float64            `bson:"unitPrice" json:"unitPrice"`
	Quantity     int                `bson:"quantity" json:"quantity"`
}

type OrderAddress struct {
	Title  string `bson:"title" json:"title"`
	Detail string `bson:"detail" json:"detail"`
	Note   string `bson:"note,omitempty" json:"note,omitempty"`
}

type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Reference  string             `bson:"reference" json:"reference"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Items      []OrderItem        `bson:"items" json:"items"`
	Subtotal   float64            `bson:"subtotal" json:"subtotal"`
	CouponCode string             `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	Discount   float64            `bson:"discount" json:"discount"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	Address    OrderAddress       `bson:"address" json:"address"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
