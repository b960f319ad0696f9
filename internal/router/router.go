package router

import (
	"time"

	"tallypos/internal/config"
	"tallypos/internal/handler"
	"tallypos/internal/infra"
	"tallypos/internal/middleware"
	"tallypos/internal/repository"
	"tallypos/internal/service"
	"tallypos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, gateway *infra.GatewayClient, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	notifier := infra.NewNotifier(rdb)
	ledgerSvc := service.NewLedgerService(customerRepo, productRepo, ledgerRepo, notifier)
	creditSvc := service.NewCreditService(customerRepo, ledgerRepo, ledgerSvc, gateway)
	stockSvc := service.NewStockService(productRepo, ledgerRepo, ledgerSvc)
	orderSvc := service.NewOrderService(orderRepo, customerRepo, productRepo, ledgerSvc, gateway, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	customersH := handler.NewCustomersHandler(creditSvc)
	paymentsH := handler.NewPaymentsHandler(creditSvc)
	ordersH := handler.NewOrdersHandler(orderSvc)
	stockH := handler.NewStockHandler(stockSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, gateway))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: staff, supervisor, admin — declared per-endpoint.
		// Staff may sell; supervisor+ may reverse, adjust stock and grant credit.
		anyRole := middleware.RequireRole(middleware.RoleStaff, middleware.RoleSupervisor, middleware.RoleAdmin)
		supervisorUp := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdmin)

		customers := v1.Group("/customers")
		{
			customers.POST("", anyRole, customersH.Create)
			customers.GET("", anyRole, customersH.List)
			customers.GET("/:id", anyRole, customersH.Get)
			customers.GET("/:id/ledger", anyRole, customersH.Ledger)
			customers.POST("/:id/credit", supervisorUp, customersH.AddCredit)
			customers.POST("/:id/payments", anyRole, customersH.AcceptPayment)
		}

		payments := v1.Group("/payments/online")
		{
			payments.POST("/initiate", anyRole, paymentsH.Initiate)
			payments.POST("/verify", anyRole, paymentsH.Verify)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", anyRole, ordersH.Create)
			orders.GET("", anyRole, ordersH.List)
			orders.GET("/:id", anyRole, ordersH.Get)
			orders.DELETE("/:id", supervisorUp, ordersH.Delete)
			orders.POST("/:id/confirm-payment", anyRole, ordersH.ConfirmPayment)
		}

		v1.POST("/exchanges", supervisorUp, ordersH.Exchange)

		stock := v1.Group("/stock")
		{
			stock.POST("/adjust", supervisorUp, stockH.Adjust)
			stock.GET("/alerts", anyRole, stockH.Alerts)
		}

		v1.GET("/products/:id/ledger", anyRole, stockH.Ledger)
	}

	return r
}
