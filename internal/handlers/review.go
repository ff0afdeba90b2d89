package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopapi/internal/models"
)

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// recomputeProductRatings refreshes the denormalized rating fields on the
// product document from its review collection.
func recomputeProductRatings(ctx context.Context, db *mongo.Database, productID primitive.ObjectID) error {
	cursor, err := db.Collection("reviews").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"productId": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return err
	}

	var results []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	avg, count := 0.0, 0
	if len(results) > 0 {
		avg, count = results[0].Avg, results[0].Count
	}

	_, err = db.Collection("products").UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$set": bson.M{"ratingsAverage": avg, "ratingsCount": count}},
	)
	return err
}

func GetProductReviews(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id/reviews"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("reviews").Find(c.Request.Context(), bson.M{"productId": productID}, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var reviews []models.Review
		if err := cursor.All(c.Request.Context(), &reviews); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if reviews == nil {
			reviews = []models.Review{}
		}
		c.JSON(http.StatusOK, gin.H{"data": reviews})
	}
}

func CreateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/:id/reviews"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "rating must be between 1 and 5")
			return
		}

		ctx := c.Request.Context()
		if _, err := newMongoProductStore(db).FindByID(ctx, productID); err != nil {
			respondAppError(c, route, err)
			return
		}

		now := time.Now()
		review := models.Review{
			ProductID: productID,
			UserID:    userID,
			Rating:    req.Rating,
			Comment:   req.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		res, err := db.Collection("reviews").InsertOne(ctx, review)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "you have already reviewed this product")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		review.ID = res.InsertedID.(primitive.ObjectID)

		if err := recomputeProductRatings(ctx, db, productID); err != nil {
			log.Printf("[REVIEW] failed to recompute ratings for product %s: %v", productID.Hex(), err)
		}

		c.JSON(http.StatusCreated, gin.H{"data": review})
	}
}

func UpdateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /reviews/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid review id")
			return
		}

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "rating must be between 1 and 5")
			return
		}

		ctx := c.Request.Context()
		var review models.Review
		err = db.Collection("reviews").FindOneAndUpdate(ctx,
			bson.M{"_id": reviewID, "userId": userID},
			bson.M{"$set": bson.M{
				"rating":    req.Rating,
				"comment":   req.Comment,
				"updatedAt": time.Now(),
			}},
		).Decode(&review)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "review not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if err := recomputeProductRatings(ctx, db, review.ProductID); err != nil {
			log.Printf("[REVIEW] failed to recompute ratings for product %s: %v", review.ProductID.Hex(), err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "review updated"})
	}
}

func DeleteReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /reviews/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid review id")
			return
		}

		// Admins may delete any review, owners only their own.
		filter := bson.M{"_id": reviewID}
		if role, _ := c.Get("role"); role != models.RoleAdmin {
			filter["userId"] = userID
		}

		ctx := c.Request.Context()
		var review models.Review
		err = db.Collection("reviews").FindOneAndDelete(ctx, filter).Decode(&review)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "review not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if err := recomputeProductRatings(ctx, db, review.ProductID); err != nil {
			log.Printf("[REVIEW] failed to recompute ratings for product %s: %v", review.ProductID.Hex(), err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
	}
}
