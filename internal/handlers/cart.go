package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopapi/internal/models"
)

type addCartItemRequest struct {
	ProductID    string `json:"productId" binding:"required"`
	VariantIndex int    `json:"variantIndex"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

func loadCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, err
}

func saveCart(ctx context.Context, db *mongo.Database, cart *models.Cart) error {
	cart.RecomputeTotal()
	cart.UpdatedAt = time.Now()

	if cart.ID.IsZero() {
		res, err := db.Collection("carts").InsertOne(ctx, cart)
		if err != nil {
			return err
		}
		cart.ID = res.InsertedID.(primitive.ObjectID)
		return nil
	}
	_, err := db.Collection("carts").ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart)
	return err
}

func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		cart, err := loadCart(c.Request.Context(), db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cart})
	}
}

func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "productId and quantity (min 1) required")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx := c.Request.Context()

		product, err := newMongoProductStore(db).FindByID(ctx, productID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		if product.Status != models.ProductStatusActive {
			respondWithError(c, http.StatusBadRequest, route, "product is not available")
			return
		}
		if req.VariantIndex < 0 || req.VariantIndex >= len(product.Variants) {
			respondWithError(c, http.StatusBadRequest, route, "invalid variantIndex")
			return
		}
		variant := product.Variants[req.VariantIndex]
		if variant.Quantity < req.Quantity {
			respondWithError(c, http.StatusBadRequest, route, "insufficient stock")
			return
		}

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID && cart.Items[i].VariantIndex == req.VariantIndex {
				cart.Items[i].Quantity += req.Quantity
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, models.CartItem{
				ProductID:    productID,
				VariantIndex: req.VariantIndex,
				Title:        product.Title,
				Attributes:   variant.Attributes,
				SKU:          variant.SKU,
				UnitPrice:    variant.EffectivePrice(),
				Quantity:     req.Quantity,
			})
		}

		if err := saveCart(ctx, db, &cart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cart})
	}
}

func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:sku"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "quantity required")
			return
		}

		sku := c.Param("sku")
		ctx := c.Request.Context()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		found := false
		items := cart.Items[:0]
		for _, item := range cart.Items {
			if item.SKU == sku {
				found = true
				if req.Quantity == 0 {
					continue // quantity zero removes the line
				}
				item.Quantity = req.Quantity
			}
			items = append(items, item)
		}
		if !found {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}
		cart.Items = items

		if err := saveCart(ctx, db, &cart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cart})
	}
}

func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:sku"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		sku := c.Param("sku")
		ctx := c.Request.Context()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items := cart.Items[:0]
		found := false
		for _, item := range cart.Items {
			if item.SKU == sku {
				found = true
				continue
			}
			items = append(items, item)
		}
		if !found {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}
		cart.Items = items

		if err := saveCart(ctx, db, &cart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cart})
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		_, err := db.Collection("carts").DeleteOne(c.Request.Context(), bson.M{"userId": userID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}
