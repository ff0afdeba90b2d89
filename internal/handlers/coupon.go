package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
)

type couponRequest struct {
	Code       string  `json:"code" binding:"required"`
	Type       string  `json:"type" binding:"required"`
	Value      float64 `json:"value" binding:"required,gt=0"`
	ExpiresAt  string  `json:"expiresAt" binding:"required"`
	UsageLimit int     `json:"usageLimit" binding:"min=0"`
	IsActive   *bool   `json:"isActive"`
}

// applyCoupon computes the discount a coupon grants on a subtotal. The
// returned discount never exceeds the subtotal.
func applyCoupon(coupon models.Coupon, subtotal float64, now time.Time) (float64, error) {
	if !coupon.IsActive {
		return 0, apperr.New(apperr.ValidationFailed, "coupon is not active")
	}
	if now.After(coupon.ExpiresAt) {
		return 0, apperr.New(apperr.ValidationFailed, "coupon has expired")
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return 0, apperr.New(apperr.ValidationFailed, "coupon usage limit reached")
	}

	var discount float64
	switch coupon.Type {
	case models.CouponTypePercentage:
		discount = subtotal * coupon.Value / 100
	case models.CouponTypeFixed:
		discount = coupon.Value
	default:
		return 0, apperr.New(apperr.Internal, "unknown coupon type")
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}

func findCouponByCode(ctx context.Context, db *mongo.Database, code string) (models.Coupon, error) {
	var coupon models.Coupon
	err := db.Collection("coupons").FindOne(ctx, bson.M{"code": normalizeCouponCode(code)}).Decode(&coupon)
	if err == mongo.ErrNoDocuments {
		return coupon, apperr.New(apperr.NotFound, "coupon not found")
	}
	if err != nil {
		return coupon, apperr.Wrap(apperr.Internal, err, "coupon lookup failed")
	}
	return coupon, nil
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /coupons/validate"
		defer handlePanic(c, route)

		var req struct {
			Code     string  `json:"code" binding:"required"`
			Subtotal float64 `json:"subtotal" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "code and subtotal required")
			return
		}

		coupon, err := findCouponByCode(c.Request.Context(), db, req.Code)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		discount, err := applyCoupon(coupon, req.Subtotal, time.Now())
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"code":     coupon.Code,
			"discount": discount,
			"total":    req.Subtotal - discount,
		}})
	}
}

func GetCoupons(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/coupons"
		defer handlePanic(c, route)
		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		cursor, err := db.Collection("coupons").Find(c.Request.Context(), bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var coupons []models.Coupon
		if err := cursor.All(c.Request.Context(), &coupons); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if coupons == nil {
			coupons = []models.Coupon{}
		}
		c.JSON(http.StatusOK, gin.H{"data": coupons})
	}
}

func CreateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/coupons"
		defer handlePanic(c, route)

		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "code, type, value and expiresAt required")
			return
		}
		if req.Type != models.CouponTypePercentage && req.Type != models.CouponTypeFixed {
			respondWithError(c, http.StatusBadRequest, route, "type must be percentage or fixed")
			return
		}
		if req.Type == models.CouponTypePercentage && req.Value > 100 {
			respondWithError(c, http.StatusBadRequest, route, "percentage value cannot exceed 100")
			return
		}
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "expiresAt must be RFC3339")
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		coupon := models.Coupon{
			Code:       normalizeCouponCode(req.Code),
			Type:       req.Type,
			Value:      req.Value,
			ExpiresAt:  expiresAt,
			UsageLimit: req.UsageLimit,
			IsActive:   active,
			CreatedAt:  time.Now(),
		}

		res, err := db.Collection("coupons").InsertOne(c.Request.Context(), coupon)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "coupon code already exists")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		coupon.ID = res.InsertedID.(primitive.ObjectID)
		c.JSON(http.StatusCreated, gin.H{"data": coupon})
	}
}

func UpdateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/coupons/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid coupon id")
			return
		}

		var req struct {
			Value      *float64 `json:"value"`
			ExpiresAt  *string  `json:"expiresAt"`
			UsageLimit *int     `json:"usageLimit"`
			IsActive   *bool    `json:"isActive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		update := bson.M{}
		if req.Value != nil {
			if *req.Value <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "value must be positive")
				return
			}
			update["value"] = *req.Value
		}
		if req.ExpiresAt != nil {
			expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "expiresAt must be RFC3339")
				return
			}
			update["expiresAt"] = expiresAt
		}
		if req.UsageLimit != nil {
			update["usageLimit"] = *req.UsageLimit
		}
		if req.IsActive != nil {
			update["isActive"] = *req.IsActive
		}
		if len(update) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		res, err := db.Collection("coupons").UpdateOne(c.Request.Context(), bson.M{"_id": id}, bson.M{"$set": update})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "coupon not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "coupon updated"})
	}
}

func DeleteCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/coupons/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid coupon id")
			return
		}

		res, err := db.Collection("coupons").DeleteOne(c.Request.Context(), bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "coupon not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "coupon deleted"})
	}
}
