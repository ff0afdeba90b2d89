package handlers

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
	"shopapi/internal/storage"
)

/* =======================
   PUBLIC READS
======================= */

func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		features, err := parseQueryFeatures(c.Request.URL.Query())
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		ctx := c.Request.Context()

		total, err := db.Collection("products").CountDocuments(ctx, features.Filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(features.Limit)))
		}

		cursor, err := db.Collection("products").Find(ctx, features.Filter, features.FindOptions())
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": products,
			"pagination": gin.H{
				"page":       features.Page,
				"limit":      features.Limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		product, err := newMongoProductStore(db).FindByID(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": product})
	}
}

/* =======================
   CREATE
======================= */

func CreateProduct(db *mongo.Database, blobs *storage.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products"
		defer handlePanic(c, route)

		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			respondWithError(c, http.StatusUnsupportedMediaType, route, "multipart/form-data required")
			return
		}

		form, files, err := parseProductForm(c)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		pipeline := newProductPipeline(newMongoProductStore(db), blobs)
		product, err := pipeline.Create(c.Request.Context(), form, files)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		log.Printf("[%s] created product %s (%d variants)", route, product.ID.Hex(), len(product.Variants))
		c.JSON(http.StatusCreated, gin.H{"data": product})
	}
}

/* =======================
   UPDATE
======================= */

// productUpdateRequest is the JSON alternative to the multipart form:
// clients that change no files send a plain JSON body.
type productUpdateRequest struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	ShortDescription *string         `json:"short_description"`
	MainImage        *string         `json:"main_image"`
	Categories       *[]string       `json:"categories"`
	Tags             *[]string       `json:"tags"`
	Status           *string         `json:"status"`
	Seo              *models.Seo     `json:"seo"`
	Variants         *[]variantInput `json:"variants"`
}

func (r productUpdateRequest) toForm() productForm {
	form := productForm{}
	if r.Title != nil {
		form.Title = strings.TrimSpace(*r.Title)
		form.TitleSet = true
	}
	if r.Description != nil {
		form.Description = strings.TrimSpace(*r.Description)
		form.DescriptionSet = true
	}
	if r.ShortDescription != nil {
		form.ShortDescription = strings.TrimSpace(*r.ShortDescription)
		form.ShortDescriptionSet = true
	}
	if r.MainImage != nil {
		form.MainImage = strings.TrimSpace(*r.MainImage)
		form.MainImageSet = true
	}
	if r.Categories != nil {
		form.Categories = *r.Categories
		form.CategoriesSet = true
	}
	if r.Tags != nil {
		form.Tags = *r.Tags
		form.TagsSet = true
	}
	if r.Status != nil {
		form.Status = strings.TrimSpace(strings.ToLower(*r.Status))
		form.StatusSet = true
	}
	if r.Seo != nil {
		form.Seo = r.Seo
		form.SeoSet = true
	}
	if r.Variants != nil {
		form.Variants = *r.Variants
		form.VariantsSet = true
	}
	return form
}

func UpdateProduct(db *mongo.Database, blobs *storage.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			form, files, err := parseProductForm(c)
			if err != nil {
				respondAppError(c, route, err)
				return
			}
			pipeline := newProductPipeline(newMongoProductStore(db), blobs)
			product, err := pipeline.Update(c.Request.Context(), id, form, files)
			if err != nil {
				respondAppError(c, route, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": product})
			return
		}

		var req productUpdateRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			respondAppError(c, route, apperr.Wrap(apperr.MalformedPayload, err, "invalid body"))
			return
		}

		pipeline := newProductPipeline(newMongoProductStore(db), blobs)
		product, err := pipeline.Update(c.Request.Context(), id, req.toForm(), nil)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": product})
	}
}

/* =======================
   DELETE
======================= */

func DeleteProduct(db *mongo.Database, blobs *storage.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		pipeline := newProductPipeline(newMongoProductStore(db), blobs)
		if err := pipeline.Remove(c.Request.Context(), id); err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

// countProducts reports how many products reference the given category,
// used by the category delete handler to warn about dangling references.
func countProducts(ctx context.Context, db *mongo.Database, categoryID primitive.ObjectID) (int64, error) {
	return db.Collection("products").CountDocuments(ctx, bson.M{"categories": categoryID})
}
