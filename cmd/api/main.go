package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "billing/api/swagger" // swagger docs
	"billing/internal/app"
	"billing/internal/cart"
	"billing/internal/config"
	"billing/internal/database"
	"billing/internal/handler"
	"billing/internal/logger"
	"billing/internal/middleware"
	"billing/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Billing API
// @version         1.0
// @description     Quotes, invoices, payments and reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewForEnvironment("development").Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	log.Info("connected to PostgreSQL", zap.String("store_mode", cfg.Billing.StoreMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	auth := middleware.NewAuthenticator(cfg.JWT.Secret)
	services := app.NewServices(db, cfg.Billing, wsHub)
	cartStore := cart.NewStore(cfg.Cart, cfg.Redis, log)

	// Set up Gin Router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	// API Routing
	api := router.Group("")
	handler.NewQuoteHandler(services.Documents, services.Conversion, auth).RegisterRoutes(api)
	handler.NewInvoiceHandler(services.Documents, services.Payments, auth).RegisterRoutes(api)
	handler.NewCustomerHandler(services.Customers, auth).RegisterRoutes(api)
	handler.NewTaxHandler(services.Taxes, auth).RegisterRoutes(api)
	handler.NewAuditHandler(services.Audit, auth).RegisterRoutes(api)
	handler.NewStatisticsHandler(services.Statistics, auth).RegisterRoutes(api)
	handler.NewCartHandler(cartStore).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if closer, ok := cartStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
