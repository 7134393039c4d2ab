package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	appsvc "crowdfund-api/internal/app"
	"crowdfund-api/internal/bootstrap"
	"crowdfund-api/internal/cache"
	"crowdfund-api/internal/platform/rabbitmq"
	"crowdfund-api/internal/repository"
	"crowdfund-api/internal/transport/http/handler"
	"crowdfund-api/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	log := app.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		gin.Recovery(),
		cors.New(corsConfig(app.Config.CORS.AllowOrigins)),
	)

	// Redis and RabbitMQ backed pieces stay nil when the client is absent.
	var (
		campaignCache appsvc.CampaignCache
		publisher     appsvc.DonationPublisher
		limiter       middleware.Limiter
	)
	if app.Redis != nil {
		campaignCache = cache.NewCampaignCache(app.Redis, time.Duration(app.Config.Redis.CampaignTTLSeconds)*time.Second)
		limiter = cache.NewLimiter(app.Redis)
	}
	if app.MQConn != nil {
		publisher = rabbitmq.NewDonationPublisher(app.MQConn, app.Config.RabbitMQ.DonationPersistQueue)
	}

	userRepo := repository.NewUserRepository(app.MySQL)
	campaignRepo := repository.NewCampaignRepository(app.MySQL)
	donationRepo := repository.NewDonationRepository(app.MySQL)

	campaignService := appsvc.NewCampaignService(campaignRepo, userRepo, campaignCache, log)
	authService := appsvc.NewAuthService(userRepo, appsvc.AuthOptions{
		JWTSecret:         app.Config.Auth.JWTSecret,
		AccessExpiration:  time.Duration(app.Config.Auth.AccessExpireMinute) * time.Minute,
		RefreshExpiration: time.Duration(app.Config.Auth.RefreshExpireMinute) * time.Minute,
		MinPasswordLength: app.Config.Auth.MinPasswordLength,
		Campaigns:         campaignService,
	})
	donationService := appsvc.NewDonationService(donationRepo, campaignRepo, userRepo, publisher)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService)
	campaignHandler := handler.NewCampaignHandler(campaignService)
	donationHandler := handler.NewDonationHandler(donationService)

	secret := app.Config.Auth.JWTSecret
	requireAuth := middleware.AuthJWT(secret)
	optionalAuth := middleware.OptionalAuthJWT(secret)
	authLimit := middleware.RateLimit(limiter, "auth", app.Config.RateLimit.AuthBurst, app.Config.RateLimit.AuthRPS, log)

	router.GET("/healthz", healthHandler.Check)

	router.POST("/register/", authLimit, authHandler.Register)
	authGroup := router.Group("/auth")
	authGroup.POST("/jwt/create/", authLimit, authHandler.Login)
	authGroup.POST("/jwt/refresh/", authLimit, authHandler.Refresh)
	authGroup.GET("/me/", requireAuth, authHandler.Me)
	authGroup.DELETE("/me/", requireAuth, authHandler.DeleteMe)

	projects := router.Group("/projects")
	projects.GET("/", optionalAuth, campaignHandler.List)
	projects.POST("/", optionalAuth, campaignHandler.Create)
	projects.GET("/mine/", requireAuth, campaignHandler.ListMine)
	projects.GET("/:id/", optionalAuth, campaignHandler.Get)
	projects.PUT("/:id/", optionalAuth, campaignHandler.Update)
	projects.PATCH("/:id/", optionalAuth, campaignHandler.Patch)
	projects.DELETE("/:id/", optionalAuth, campaignHandler.Delete)
	projects.GET("/:id/donations/", optionalAuth, donationHandler.ListByCampaign)

	router.POST("/donations/", requireAuth, donationHandler.Pledge)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.HeaderRequestID)
	cfg.ExposeHeaders = []string{middleware.HeaderRequestID}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
