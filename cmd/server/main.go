package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/localehub/translation-management-backend/internal/cache"
	"github.com/localehub/translation-management-backend/internal/database"
	"github.com/localehub/translation-management-backend/internal/handlers"
	"github.com/localehub/translation-management-backend/internal/services"
	"github.com/localehub/translation-management-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Storage: MongoDB when configured, in-memory otherwise
	var store storage.Store
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		dbName := os.Getenv("DB_NAME")
		if dbName == "" {
			dbName = "translations"
		}
		client, db, err := database.Connect(uri, dbName)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer database.Disconnect(client)

		mongoStore, err := storage.NewMongoStore(context.Background(), db)
		if err != nil {
			log.Fatal("Failed to create indexes:", err)
		}
		store = mongoStore
		log.Println("Connected to MongoDB")
	} else {
		log.Println("MONGODB_URI not set, using in-memory storage (data will not survive restarts)")
		store = storage.NewMemoryStore()
	}

	// Cache: Redis when configured, in-process otherwise
	var translationCache cache.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{URL: redisURL})
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer redisCache.Close()
		translationCache = redisCache
		log.Println("Connected to Redis cache")
	} else {
		translationCache = cache.NewMemoryCache()
	}

	// Services
	registry := services.NewTagRegistry(store)
	translationService := services.NewTranslationService(store, registry, translationCache)
	seeder := services.NewDataSeeder(store, translationCache)

	// Handlers
	authHandler := handlers.NewAuthHandler(store)
	translationHandler := handlers.NewTranslationHandler(translationService)
	adminHandler := handlers.NewAdminHandler(store, seeder)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("FRONTEND_URL"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Routes
	api := app.Group("/api/v1")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", handlers.AuthMiddleware, authHandler.Me)

	// Export is public so client applications can sync without a token
	api.Get("/translations/export/:locale", translationHandler.Export)

	// Protected routes
	api.Use(handlers.AuthMiddleware)

	// Translation routes
	api.Post("/translations", translationHandler.Create)
	api.Get("/translations/search", translationHandler.Search)
	api.Get("/translations/locales", translationHandler.Locales)
	api.Get("/translations/:id", translationHandler.Get)
	api.Put("/translations/:id", translationHandler.Update)
	api.Delete("/translations/:id", handlers.AdminMiddleware, translationHandler.Delete)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(handlers.AdminMiddleware)
	admin.Get("/stats", adminHandler.Stats)
	admin.Post("/seed/:count", adminHandler.Seed)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}
