package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/controllers"
	"github.com/vortexlabs/cupido-api/middleware"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Cupido API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.Order{},
		&models.Message{},
		&models.Presentation{},
		&models.Slide{},
		&models.LoyaltyUser{},
		&models.LoyaltyTest{},
		&models.LoyaltyMessage{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize external services
	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitS3Service(); err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
	} else {
		log.Println("AWS_S3_BUCKET not set, media storage disabled")
	}
	services.InitWhatsAppService()
	services.InitTTSService()

	// Background delivery of scheduled messages
	scheduler := services.NewScheduler(cfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the Gin engine with middleware and all routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// Payment and messaging provider webhooks
	router.POST("/webhook/payment", controllers.PaymentWebhook)
	router.POST("/webhook/loyalty", controllers.LoyaltyWebhook)
	router.POST("/webhook/whatsapp", controllers.WhatsAppWebhook)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Sender form, keyed by the one-time token
		v1.GET("/form/:token", controllers.ShowForm)
		v1.POST("/form/:token/submit", controllers.SubmitForm)
		v1.POST("/form/:token/upload", controllers.UploadPremium)

		// Buyer order recovery by phone
		v1.POST("/access", controllers.LookupOrders)

		// Public slideshow viewer
		v1.GET("/presentations/:id", controllers.GetPresentation)

		// Loyalty test accounts and chat
		loyalty := v1.Group("/loyalty")
		{
			loyalty.POST("/register", controllers.RegisterLoyaltyUser)
			loyalty.POST("/login", controllers.LoginLoyaltyUser)

			authed := loyalty.Group("")
			authed.Use(middleware.EnsureValidToken())
			{
				authed.POST("/tests", controllers.CreateLoyaltyTest)
				authed.GET("/tests", controllers.ListLoyaltyTests)
				authed.GET("/tests/:id/messages", controllers.GetLoyaltyMessages)
				authed.POST("/tests/:id/messages", controllers.SendLoyaltyMessage)
			}
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cupido API is running",
	})
}
