package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Variant is a purchasable configuration of a product. Variants are owned by
// exactly one product and persisted embedded in its document.
type Variant struct {
	Attributes    map[string]string `bson:"attributes" json:"attributes"`
	Price         float64           `bson:"price" json:"price"`
	DiscountPrice float64           `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	Quantity      int               `bson:"quantity" json:"quantity"`
	Images        []string          `bson:"images" json:"images"`
	SKU           string            `bson:"sku" json:"sku"`
	BarCode       string            `bson:"barCode" json:"barCode"`
	IsAvailable   bool              `bson:"isAvailable" json:"isAvailable"`
}

// EffectivePrice is the price a buyer pays: the discount price when one is
// set below the regular price.
func (v Variant) EffectivePrice() float64 {
	if v.DiscountPrice > 0 && v.DiscountPrice < v.Price {
		return v.DiscountPrice
	}
	return v.Price
}

type Product struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title            string               `bson:"title" json:"title"`
	Description      string               `bson:"description" json:"description"`
	ShortDescription string               `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	Slug             string               `bson:"slug" json:"slug"`
	MainImage        string               `bson:"mainImage,omitempty" json:"mainImage,omitempty"`
	Categories       []primitive.ObjectID `bson:"categories" json:"categories"`
	Tags             StringList           `bson:"tags,omitempty" json:"tags,omitempty"`
	Status           string               `bson:"status" json:"status"`
	Seo              *Seo                 `bson:"seo,omitempty" json:"seo,omitempty"`
	Variants         []Variant            `bson:"variants" json:"variants"`
	MinPrice         float64              `bson:"minPrice" json:"minPrice"`
	TotalStock       int                  `bson:"totalStock" json:"totalStock"`
	IsAvailable      bool                 `bson:"isAvailable" json:"isAvailable"`
	RatingsAverage   float64              `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsCount     int                  `bson:"ratingsCount" json:"ratingsCount"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// RecomputeAggregates refreshes the fields derived from the variant list.
// Must run whenever variants change, before the document is written.
func (p *Product) RecomputeAggregates() {
	p.MinPrice = 0
	p.TotalStock = 0
	p.IsAvailable = false

	for i := range p.Variants {
		v := &p.Variants[i]
		v.IsAvailable = v.Quantity > 0

		price := v.EffectivePrice()
		if p.MinPrice == 0 || price < p.MinPrice {
			p.MinPrice = price
		}
		p.TotalStock += v.Quantity
		if v.IsAvailable {
			p.IsAvailable = true
		}
	}
}

// ImageFilenames collects every blob referenced by the product, main image
// included. Used for cascading file cleanup on product delete.
func (p *Product) ImageFilenames() []string {
	names := make([]string, 0, len(p.Variants)+1)
	if p.MainImage != "" {
		names = append(names, p.MainImage)
	}
	for _, v := range p.Variants {
		names = append(names, v.Images...)
	}
	return names
}
