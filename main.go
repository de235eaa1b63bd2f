package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"workspace-app/config"
	"workspace-app/database"
	"workspace-app/internal/api/billing"
	routes "workspace-app/internal/app/http"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	config.LoadEnv()
	database.InitDB()

	billingSvc := billing.NewService(database.DB, log)
	if err := billingSvc.SyncPlans(billing.DefaultCatalog()); err != nil {
		log.Fatal().Err(err).Msg("failed to sync plan catalog")
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, database.DB, log)

	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
