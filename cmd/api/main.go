package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/link4deal/commerce-api/internal/config"
	"github.com/link4deal/commerce-api/internal/handler"
	"github.com/link4deal/commerce-api/internal/middleware"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/pricing"
	"github.com/link4deal/commerce-api/internal/repository"
	"github.com/link4deal/commerce-api/internal/scraper"
	"github.com/link4deal/commerce-api/internal/service"
	"github.com/link4deal/commerce-api/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns
	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("connected to postgres", "host", cfg.DB.Host, "db", cfg.DB.Name)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to redis", "addr", cfg.Redis.Addr)

	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer amqpConn.Close()
	amqpCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer amqpCh.Close()
	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		return fmt.Errorf("setup rabbitmq topology: %w", err)
	}
	log.Info("connected to rabbitmq")

	// Repositories.
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	channelRepo := repository.NewChannelRepository(dbPool)
	scrapeRepo := repository.NewScrapeRepository(dbPool)
	promoRepo := repository.NewPromotionRepository(dbPool)

	// Services.
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productService := service.NewProductService(productRepo, redisClient)
	calc := pricing.NewCalculator(cfg.Pricing.TaxRate)
	cartService := service.NewCartService(cartRepo, productRepo, calc, cfg.Cart.TTLDays)
	channelService := service.NewChannelService(channelRepo, scrapeRepo, amqpCh)
	promoService := service.NewPromotionService(promoRepo, channelRepo)

	// Workers.
	pageScraper := scraper.New(cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent)
	scrapeWorker := worker.NewScrapeWorker(amqpCh, scrapeRepo, pageScraper, redisClient, log)
	if err := scrapeWorker.Start(ctx); err != nil {
		return fmt.Errorf("start scrape worker: %w", err)
	}
	defer scrapeWorker.Stop()

	janitor := worker.NewCartJanitor(cartRepo, cfg.Cart.JanitorInterval, cfg.Cart.AbandonAfter, log)
	janitor.Start(ctx)
	defer janitor.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	productHandler := handler.NewProductHandler(productService)
	cartHandler := handler.NewCartHandler(cartService)
	channelHandler := handler.NewChannelHandler(channelService, promoService)
	imageHandler := handler.NewImageHandler()
	healthHandler := handler.NewHealthHandler(dbPool, redisClient, amqpConn, amqpCh)

	router := setupRouter(cfg, authHandler, productHandler, cartHandler, channelHandler, imageHandler, healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupRouter(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	channelHandler *handler.ChannelHandler,
	imageHandler *handler.ImageHandler,
	healthHandler *handler.HealthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	products := v1.Group("/products")
	{
		products.GET("", productHandler.List)
		products.GET("/:id", productHandler.GetByID)
		products.GET("/:id/reviews", productHandler.ListReviews)

		authed := products.Group("", middleware.AuthMiddleware(cfg.JWT.Secret))
		{
			authed.POST("/:id/reviews", productHandler.AddReview)
			authed.POST("/:id/wishlist", productHandler.AddToWishlist)

			sellers := authed.Group("", middleware.RequireRole(model.RoleBrand, model.RoleInfluencer))
			{
				sellers.POST("", productHandler.Create)
				sellers.PUT("/:id", productHandler.Update)
				sellers.PATCH("/:id/stock", productHandler.UpdateStock)
			}
		}
	}

	cart := v1.Group("/cart", middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		cart.GET("", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PATCH("/items/:id", cartHandler.UpdateItem)
		cart.DELETE("/items/:id", cartHandler.DeleteItem)
		cart.DELETE("/items", cartHandler.Clear)
		cart.POST("/coupons", cartHandler.ApplyCoupon)
		cart.DELETE("/coupons/:code", cartHandler.RemoveCoupon)
		cart.POST("/convert", cartHandler.Convert)
		cart.POST("/abandon", cartHandler.Abandon)
		cart.POST("/extend", cartHandler.ExtendExpiration)
	}

	channels := v1.Group("/channels", middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		channels.POST("", channelHandler.Create)
		channels.GET("/:id", channelHandler.GetByID)
		channels.POST("/:id/scrapes", channelHandler.SubmitScrape)
		channels.POST("/:id/promotions", channelHandler.CreatePromotion)
		channels.GET("/:id/promotions", channelHandler.ListPromotions)
	}
	v1.GET("/scrapes/:scrapeID", middleware.AuthMiddleware(cfg.JWT.Secret), channelHandler.GetScrape)

	imgs := v1.Group("/images", middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		imgs.POST("/optimize", imageHandler.Optimize)
		imgs.POST("/thumbnail", imageHandler.Thumbnail)
	}

	return router
}
