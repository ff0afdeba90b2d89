package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopapi/internal/models"
)

type orderItemRequest struct {
	ProductID    string `json:"productId" binding:"required"`
	VariantIndex int    `json:"variantIndex"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	Items      []orderItemRequest  `json:"items" binding:"required,min=1"`
	Address    models.OrderAddress `json:"address" binding:"required"`
	CouponCode string              `json:"couponCode"`
}

// validStatusTransitions limits admin status updates to the forward
// lifecycle; cancellation is allowed only before shipment.
var validStatusTransitions = map[string][]string{
	models.OrderStatusPending: {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:    {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped: {models.OrderStatusDelivered},
}

func statusTransitionAllowed(from, to string) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "items and address required")
			return
		}
		if req.Address.Title == "" || req.Address.Detail == "" {
			respondWithError(c, http.StatusBadRequest, route, "address title and detail required")
			return
		}

		ctx := c.Request.Context()
		store := newMongoProductStore(db)

		// First pass validates every line against the catalog before any
		// stock is touched.
		items := make([]models.OrderItem, 0, len(req.Items))
		subtotal := 0.0
		for _, line := range req.Items {
			productID, err := primitive.ObjectIDFromHex(line.ProductID)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid productId")
				return
			}
			product, err := store.FindByID(ctx, productID)
			if err != nil {
				respondAppError(c, route, err)
				return
			}
			if product.Status != models.ProductStatusActive {
				respondWithError(c, http.StatusBadRequest, route, "product "+product.Title+" is not available")
				return
			}
			if line.VariantIndex < 0 || line.VariantIndex >= len(product.Variants) {
				respondWithError(c, http.StatusBadRequest, route, "invalid variantIndex for product "+product.Title)
				return
			}
			variant := product.Variants[line.VariantIndex]
			if variant.Quantity < line.Quantity {
				respondWithError(c, http.StatusBadRequest, route, "insufficient stock for "+variant.SKU)
				return
			}

			items = append(items, models.OrderItem{
				ProductID:    productID,
				VariantIndex: line.VariantIndex,
				Title:        product.Title,
				SKU:          variant.SKU,
				UnitPrice:    variant.EffectivePrice(),
				Quantity:     line.Quantity,
			})
			subtotal += variant.EffectivePrice() * float64(line.Quantity)
		}

		discount := 0.0
		couponCode := ""
		if req.CouponCode != "" {
			coupon, err := findCouponByCode(ctx, db, req.CouponCode)
			if err != nil {
				respondAppError(c, route, err)
				return
			}
			discount, err = applyCoupon(coupon, subtotal, time.Now())
			if err != nil {
				respondAppError(c, route, err)
				return
			}
			couponCode = coupon.Code
		}

		if err := reserveStock(ctx, store, items); err != nil {
			respondAppError(c, route, err)
			return
		}

		now := time.Now()
		order := models.Order{
			Reference:  uuid.NewString(),
			UserID:     userID,
			Items:      items,
			Subtotal:   subtotal,
			CouponCode: couponCode,
			Discount:   discount,
			TotalPrice: subtotal - discount,
			Address:    req.Address,
			Status:     models.OrderStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		res, err := db.Collection("orders").InsertOne(ctx, order)
		if err != nil {
			releaseStock(ctx, store, items)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		order.ID = res.InsertedID.(primitive.ObjectID)

		if couponCode != "" {
			_, err := db.Collection("coupons").UpdateOne(ctx,
				bson.M{"code": couponCode}, bson.M{"$inc": bson.M{"usedCount": 1}})
			if err != nil {
				log.Printf("[ORDER] failed to bump coupon %s usage: %v", couponCode, err)
			}
		}

		// Ordered items leave the cart once the order is placed.
		if _, err := db.Collection("carts").DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
			log.Printf("[ORDER] failed to clear cart for user %s: %v", userID.Hex(), err)
		}

		c.JSON(http.StatusCreated, gin.H{"data": order})
	}
}

// reserveStock decrements every line's variant quantity through the store's
// guarded adjustment. On any failure the decrements already applied are
// given back before the error is returned.
func reserveStock(ctx context.Context, store productStore, items []models.OrderItem) error {
	for i, item := range items {
		if err := store.AdjustStock(ctx, item.ProductID, item.SKU, -item.Quantity); err != nil {
			releaseStock(ctx, store, items[:i])
			return err
		}
	}
	return nil
}

// releaseStock returns previously reserved quantities. Best-effort: a failed
// restore is logged, the remaining lines are still attempted.
func releaseStock(ctx context.Context, store productStore, items []models.OrderItem) {
	for _, item := range items {
		if err := store.AdjustStock(ctx, item.ProductID, item.SKU, item.Quantity); err != nil {
			log.Printf("[ORDER] failed to restore stock for %s: %v", item.SKU, err)
		}
	}
}

func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(c.Request.Context(), bson.M{"userId": userID}, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var orders []models.Order
		if err := cursor.All(c.Request.Context(), &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if orders == nil {
			orders = []models.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"data": orders})
	}
}

func GetMyOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:reference"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var order models.Order
		err := db.Collection("orders").FindOne(c.Request.Context(),
			bson.M{"reference": c.Param("reference"), "userId": userID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": order})
	}
}

func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/orders"
		defer handlePanic(c, route)
		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		features, err := parseQueryFeatures(c.Request.URL.Query())
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		ctx := c.Request.Context()
		totalCount, err := db.Collection("orders").CountDocuments(ctx, features.Filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cursor, err := db.Collection("orders").Find(ctx, features.Filter, features.FindOptions())
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": orders,
			"pagination": gin.H{
				"page":       features.Page,
				"limit":      features.Limit,
				"total":      totalCount,
			},
		})
	}
}

func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/orders/:id/status"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "status required")
			return
		}

		ctx := c.Request.Context()
		var order models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !statusTransitionAllowed(order.Status, req.Status) {
			respondWithError(c, http.StatusBadRequest, route,
				"cannot change status from "+order.Status+" to "+req.Status)
			return
		}

		_, err = db.Collection("orders").UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": req.Status, "updatedAt": time.Now()}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		// A cancelled order gives its stock back.
		if req.Status == models.OrderStatusCancelled {
			releaseStock(ctx, newMongoProductStore(db), order.Items)
		}

		c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
	}
}

func DeleteOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/orders/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		res, err := db.Collection("orders").DeleteOne(c.Request.Context(), bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
	}
}
