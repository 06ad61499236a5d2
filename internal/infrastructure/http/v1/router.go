// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"yiyostore/internal/core/numerator"
	"yiyostore/internal/domain/catalogs/customer"
	"yiyostore/internal/domain/catalogs/product"
	"yiyostore/internal/domain/inventory"
	"yiyostore/internal/domain/orders"
	"yiyostore/internal/infrastructure/http/v1/handlers"
	"yiyostore/internal/infrastructure/http/v1/middleware"
	"yiyostore/internal/infrastructure/storage/postgres"
	"yiyostore/internal/infrastructure/storage/postgres/catalog_repo"
	"yiyostore/internal/infrastructure/storage/postgres/inventory_repo"
	"yiyostore/internal/infrastructure/storage/postgres/order_repo"
	"yiyostore/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (also used by health checks).
	Pool *postgres.Pool

	// TxManager coordinates transactions shared by repos and services.
	TxManager *postgres.TxManager

	// Audit records entity change history.
	Audit *postgres.AuditService

	// Logger for request logging.
	Logger *logger.Logger

	// Numerator generates document and catalog numbers.
	Numerator numerator.Generator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// Wire repositories and services once, share them across handlers.
	customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	lotRepo := inventory_repo.NewLotRepo(cfg.TxManager, cfg.Audit)
	orderRepo := order_repo.NewOrderRepo(cfg.TxManager)

	customerService := customer.NewService(customerRepo, cfg.Numerator, cfg.TxManager)
	productService := product.NewService(productRepo, cfg.Numerator, cfg.TxManager)
	inventoryService := inventory.NewService(lotRepo, cfg.TxManager)
	allocator := inventory.NewAllocator(lotRepo)
	orderService := orders.NewService(orderRepo, productService, allocator, cfg.Numerator, cfg.TxManager)

	customerHandler := handlers.NewCustomerHandler(base, customerService)
	productHandler := handlers.NewProductHandler(base, productService)
	lotHandler := handlers.NewLotHandler(base, inventoryService)
	orderHandler := handlers.NewOrderHandler(base, orderService)

	// API v1
	v1 := router.Group("/api/v1")
	{
		RegisterCatalogRoutes(v1.Group("/customers"), customerHandler)

		products := v1.Group("/products")
		RegisterCatalogRoutes(products, productHandler)
		products.GET("/:id/availability", lotHandler.Availability)
		products.GET("/:id/lots", lotHandler.EligibleLots)

		lots := v1.Group("/lots")
		{
			lots.GET("", lotHandler.List)
			lots.POST("", lotHandler.Receive)
			lots.GET("/:id", lotHandler.Get)
			lots.POST("/:id/adjust", lotHandler.Adjust)
		}

		ordersGroup := v1.Group("/orders")
		{
			ordersGroup.GET("", orderHandler.List)
			ordersGroup.POST("", orderHandler.Create)
			ordersGroup.GET("/:id", orderHandler.Get)
			ordersGroup.PUT("/:id", orderHandler.Update)
			ordersGroup.PATCH("/:id/status", orderHandler.UpdateStatus)
			ordersGroup.DELETE("/:id", orderHandler.Delete)
		}
	}

	return router
}
