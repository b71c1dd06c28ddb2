package main

import (
	"fmt"
	"log"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/config"
	"github.com/theredlobstercartel/tinyfeedback-sub000/handler"
	"github.com/theredlobstercartel/tinyfeedback-sub000/limit"
	"github.com/theredlobstercartel/tinyfeedback-sub000/router"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(err.Error())
	}
	config.AppCfg.LoadConfig()
}

func main() {
	config.ConnectDatabase()
	defer func() {
		db, _ := config.Db.DB()
		db.Close()
	}()

	cfg := config.AppCfg

	// A configured Redis shares rate-limit windows across instances;
	// without it each instance enforces its own independent limit.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
	}

	widgetWindow := time.Duration(cfg.WidgetRateWindowMs) * time.Millisecond
	apiWindow := time.Duration(cfg.APIRateWindowMs) * time.Millisecond
	var widgetLimiter, apiLimiter limit.Store
	if redisClient != nil {
		widgetLimiter = limit.NewRedisStore(redisClient, "rl:widget", cfg.WidgetRateLimit, widgetWindow)
		apiLimiter = limit.NewRedisStore(redisClient, "rl:api", cfg.APIRateLimit, apiWindow)
	} else {
		widgetLimiter = limit.NewMemoryStore(cfg.WidgetRateLimit, widgetWindow)
		apiLimiter = limit.NewMemoryStore(cfg.APIRateLimit, apiWindow)
	}

	var notifier service.Notifier = service.NoopNotifier{}
	if cfg.ResendAPIKey != "" {
		notifier = service.NewEmailNotifier(cfg.ResendAPIKey, cfg.NotifyFrom)
	}

	projects := service.NewProjectService(config.Db, service.QuotaConfig{
		FreeMonthlyLimit:     cfg.FreeMonthlyLimit,
		FreeWarningThreshold: cfg.FreeWarningThreshold,
		UpgradeURL:           cfg.UpgradeURL,
	})
	feedbacks := service.NewFeedbackService(config.Db)

	r := gin.Default()

	// CORS stays wide open even on error responses so the widget's
	// browser-side error handling can read the body.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		MaxAge:          12 * time.Hour,
	}))

	router.SetupRoutes(r, router.Deps{
		DB:              config.Db,
		Projects:        projects,
		Feedbacks:       feedbacks,
		Notifier:        notifier,
		WidgetLimiter:   widgetLimiter,
		WidgetRateLimit: cfg.WidgetRateLimit,
		APILimiter:      apiLimiter,
		APIRateLimit:    cfg.APIRateLimit,
		Health:          handler.NewHealthHandler(redisClient),
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
