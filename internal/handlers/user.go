package handlers

import (
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopapi/internal/imaging"
	"shopapi/internal/models"
	"shopapi/internal/storage"
)

const userImageFolder = "images/users"

type adminUserUpdateRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

/* =======================
   PROFILE (ME)
======================= */

// UpdateMe accepts multipart with optional name/phone fields and an optional
// `photo` file. The photo goes through the same transform-then-store path as
// product images; the previous photo is removed only after the write.
func UpdateMe(db *mongo.Database, blobs *storage.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/me"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		if err := c.Request.ParseMultipartForm(16 << 20); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid multipart body")
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		if value, ok := c.GetPostForm("name"); ok {
			name := strings.TrimSpace(value)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			updateSet["name"] = name
		}
		if value, ok := c.GetPostForm("phone"); ok {
			updateSet["phone"] = strings.TrimSpace(value)
		}

		newPhoto := ""
		if header, err := c.FormFile("photo"); err == nil {
			file, err := header.Open()
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "internal server error")
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "internal server error")
				return
			}

			thumb, err := imaging.Thumbnail(data)
			if err != nil {
				respondAppError(c, route, err)
				return
			}

			newPhoto = userPhotoFilename(userID)
			if err := blobs.Save(userImageFolder, newPhoto, thumb); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "internal server error")
				return
			}
			updateSet["photo"] = newPhoto
		}

		ctx := c.Request.Context()

		var existing models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&existing); err != nil {
			if newPhoto != "" {
				blobs.SafeDelete(userImageFolder + "/" + newPhoto)
			}
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		if _, err := db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": updateSet}); err != nil {
			if newPhoto != "" {
				blobs.SafeDelete(userImageFolder + "/" + newPhoto)
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if newPhoto != "" && existing.Photo != "" && existing.Photo != newPhoto {
			blobs.SafeDelete(userImageFolder + "/" + existing.Photo)
		}

		var updated models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

func userPhotoFilename(userID primitive.ObjectID) string {
	return "user-" + userID.Hex() + "-" + primitive.NewObjectID().Hex() + ".jpeg"
}

/* =======================
   ADMIN
======================= */

func GetUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/users"
		defer handlePanic(c, route)

		features, err := parseQueryFeatures(c.Request.URL.Query())
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		if selfID, ok := currentUserID(c); ok {
			features.Filter["_id"] = bson.M{"$ne": selfID}
		}

		ctx := c.Request.Context()

		total, err := db.Collection("users").CountDocuments(ctx, features.Filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(features.Limit)))
		}

		cursor, err := db.Collection("users").Find(ctx, features.Filter, features.FindOptions())
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": users,
			"pagination": gin.H{
				"page":       features.Page,
				"limit":      features.Limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

func GetUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&user); err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

func UpdateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req adminUserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		if req.Role != nil {
			role := strings.TrimSpace(*req.Role)
			if role != models.RoleUser && role != models.RoleAdmin {
				respondWithError(c, http.StatusBadRequest, route, "role must be user or admin")
				return
			}
			updateSet["role"] = role
		}
		if req.IsActive != nil {
			updateSet["isActive"] = *req.IsActive
		}

		result, err := db.Collection("users").UpdateOne(c.Request.Context(), bson.M{"_id": id}, bson.M{"$set": updateSet})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		var updated models.User
		if err := db.Collection("users").FindOne(c.Request.Context(), bson.M{"_id": id}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

func DeleteUser(db *mongo.Database, blobs *storage.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx := c.Request.Context()

		var existing models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&existing); err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		if _, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if _, err := db.Collection("refresh_tokens").DeleteMany(ctx, bson.M{"userId": id}); err != nil {
			log.Printf("[%s] refresh token cleanup failed: %v", route, err)
		}
		if existing.Photo != "" {
			blobs.SafeDelete(userImageFolder + "/" + existing.Photo)
		}

		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	}
}
