package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

type Coupon struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code       string             `bson:"code" json:"code"`
	Type       string             `bson:"type" json:"type"`
	Value      float64            `bson:"value" json:"value"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"expiresAt"`
	UsageLimit int                `bson:"usageLimit" json:"usageLimit"`
	UsedCount  int                `bson:"usedCount" json:"usedCount"`
	IsActive   bool               `bson:"isActive" json:"isActive"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
