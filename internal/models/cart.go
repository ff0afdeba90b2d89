package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem snapshots the variant price at the moment it was added; later
// catalog price changes do not rewrite existing carts.
type CartItem struct {
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	VariantIndex int                `bson:"variantIndex" json:"variantIndex"`
	Title        string             `bson:"title" json:"title"`
	Attributes   map[string]string  `bson:"attributes" json:"attributes"`
	SKU          string             `bson:"sku" json:"sku"`
	UnitPrice    float64            `bson:"unitPrice" json:"unitPrice"`
	Quantity     int                `bson:"quantity" json:"quantity"`
}

type Cart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Items      []CartItem         `bson:"items" json:"items"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecomputeTotal refreshes the derived cart total from its items.
func (c *Cart) RecomputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	c.TotalPrice = total
}
