package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"shopapi/internal/config"
	"shopapi/internal/database"
	"shopapi/internal/handlers"
	"shopapi/internal/middleware"
	"shopapi/internal/storage"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureCategoryIndexes(db); err != nil {
		log.Printf("category index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureCouponIndexes(db); err != nil {
		log.Printf("coupon index warning: %v", err)
	}
	if err := database.EnsureReviewIndexes(db); err != nil {
		log.Printf("review index warning: %v", err)
	}

	blobs := storage.NewBlobStore(config.AppEnv.UploadDir)

	jwtSecret := config.AppEnv.JWTSecret
	accessTTL := config.AppEnv.AccessTokenTTL
	refreshTTL := config.AppEnv.RefreshTokenTTL

	r := gin.Default()
	r.Static("/public", config.AppEnv.UploadDir)

	r.POST("/auth/register", handlers.Register(db, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/login", handlers.Login(db, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/refresh", handlers.Refresh(db, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.UserAuth(jwtSecret), handlers.GetMe(db))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.GET("/products/:id/reviews", handlers.GetProductReviews(db))
	r.GET("/categories", handlers.GetCategories(db))
	r.GET("/categories/:slug", handlers.GetCategory(db))
	r.POST("/coupons/validate", handlers.ValidateCoupon(db))

	user := r.Group("/")
	user.Use(middleware.UserAuth(jwtSecret))
	{
		user.PATCH("/users/me", handlers.UpdateMe(db, blobs))

		user.GET("/cart", handlers.GetCart(db))
		user.POST("/cart/items", handlers.AddCartItem(db))
		user.PUT("/cart/items/:sku", handlers.UpdateCartItem(db))
		user.DELETE("/cart/items/:sku", handlers.RemoveCartItem(db))
		user.DELETE("/cart", handlers.ClearCart(db))

		user.POST("/orders", handlers.CreateOrder(db))
		user.GET("/orders", handlers.GetMyOrders(db))
		user.GET("/orders/:reference", handlers.GetMyOrder(db))

		user.POST("/products/:id/reviews", handlers.CreateReview(db))
		user.PUT("/reviews/:id", handlers.UpdateReview(db))
		user.DELETE("/reviews/:id", handlers.DeleteReview(db))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(jwtSecret))
	{
		admin.POST("/products", handlers.CreateProduct(db, blobs))
		admin.PUT("/products/:id", handlers.UpdateProduct(db, blobs))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db, blobs))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))

		admin.GET("/coupons", handlers.GetCoupons(db))
		admin.POST("/coupons", handlers.CreateCoupon(db))
		admin.PUT("/coupons/:id", handlers.UpdateCoupon(db))
		admin.DELETE("/coupons/:id", handlers.DeleteCoupon(db))

		admin.GET("/users", handlers.GetUsers(db))
		admin.GET("/users/:id", handlers.GetUser(db))
		admin.PUT("/users/:id", handlers.UpdateUser(db))
		admin.DELETE("/users/:id", handlers.DeleteUser(db, blobs))
	}

	r.Run(":" + config.AppEnv.Port)
}
