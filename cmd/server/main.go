package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/config"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	matchingCfg, err := config.LoadMatching()
	if err != nil {
		log.Fatalf("invalid matching configuration: %v", err)
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.Transaction{},
		&models.Document{},
		&models.AttachmentRecord{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := routes.RegisterRoutes(r, db, matchingCfg); err != nil {
		log.Fatalf("failed to register routes: %v", err)
	}

	r.Run(":8080")
}
