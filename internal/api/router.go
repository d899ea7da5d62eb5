package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/fxops/backoffice/internal/api/handler"
	"github.com/fxops/backoffice/internal/api/middleware"
	"github.com/fxops/backoffice/internal/api/spec"
	"github.com/fxops/backoffice/internal/config"
	"github.com/fxops/backoffice/internal/idempotency"
	"github.com/fxops/backoffice/internal/repository"
	"github.com/fxops/backoffice/internal/service"
)

// Router assembles the HTTP surface from the wired services.
type Router struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *pgxpool.Pool
	redis       redis.Cmdable
	repo        *repository.Repository
	idempotency *idempotency.Store

	orders        *service.OrderService
	beneficiaries *service.BeneficiaryService
	accounts      *service.AccountService
	profit        *service.ProfitService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	repo *repository.Repository,
	idem *idempotency.Store,
	orders *service.OrderService,
	beneficiaries *service.BeneficiaryService,
	accounts *service.AccountService,
	profit *service.ProfitService,
) *Router {
	return &Router{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		repo:          repo,
		idempotency:   idem,
		orders:        orders,
		beneficiaries: beneficiaries,
		accounts:      accounts,
		profit:        profit,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	authHandler := handler.NewAuthHandler(api.repo)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	orderHandler := handler.NewOrderHandler(api.orders)
	beneficiaryHandler := handler.NewBeneficiaryHandler(api.beneficiaries)
	accountHandler := handler.NewAccountHandler(api.accounts)
	profitHandler := handler.NewProfitHandler(api.profit)

	idem := middleware.IdempotencyMiddleware(api.idempotency, api.logger)

	// Public routes
	r.With(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS)).Post("/v1/auth/login", authHandler.Login)
	r.Get("/healthz", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler)
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Orders
		r.Get("/v1/orders", orderHandler.List)
		r.Post("/v1/orders", orderHandler.Create)
		r.Post("/v1/orders/derive", orderHandler.DeriveAmounts)
		r.Post("/v1/orders/bulk-delete", orderHandler.BulkDelete)
		r.Get("/v1/orders/{id}", orderHandler.Get)
		r.Delete("/v1/orders/{id}", orderHandler.Delete)
		r.Post("/v1/orders/{id}/process", orderHandler.Process)
		r.With(idem).Post("/v1/orders/{id}/receipts", orderHandler.AddReceipts)
		r.With(idem).Post("/v1/orders/{id}/payments", orderHandler.AddPayments)
		r.Post("/v1/orders/{id}/beneficiaries", orderHandler.AddBeneficiaries)
		r.Post("/v1/orders/{id}/cancel", orderHandler.Cancel)
		r.Post("/v1/orders/{id}/profit", orderHandler.RecordProfit)

		// Customer beneficiary directory
		r.Get("/v1/customers/{customerID}/beneficiaries", beneficiaryHandler.List)
		r.Post("/v1/customers/{customerID}/beneficiaries", beneficiaryHandler.Add)
		r.Put("/v1/customers/{customerID}/beneficiaries/{beneficiaryID}", beneficiaryHandler.Update)
		r.Delete("/v1/customers/{customerID}/beneficiaries/{beneficiaryID}", beneficiaryHandler.Delete)

		// Accounts
		r.Get("/v1/accounts", accountHandler.List)

		// Profit calculations
		r.Get("/v1/profit/calculations", profitHandler.ListCalculations)
		r.Post("/v1/profit/calculations", profitHandler.CreateCalculation)
		r.Get("/v1/profit/default/summary", profitHandler.DefaultSummary)
		r.Patch("/v1/profit/calculations/{calculationID}", profitHandler.RenameCalculation)
		r.Delete("/v1/profit/calculations/{calculationID}", profitHandler.DeleteCalculation)
		r.Get("/v1/profit/calculations/{calculationID}/summary", profitHandler.Summary)
		r.Post("/v1/profit/calculations/{calculationID}/default", profitHandler.SetDefault)
		r.Delete("/v1/profit/calculations/{calculationID}/default", profitHandler.UnsetDefault)
		r.Post("/v1/profit/calculations/{calculationID}/groups", profitHandler.CreateGroup)
		r.Patch("/v1/profit/calculations/{calculationID}/groups/{groupID}", profitHandler.RenameGroup)
		r.Delete("/v1/profit/calculations/{calculationID}/groups/{groupID}", profitHandler.DeleteGroup)
		r.Put("/v1/profit/calculations/{calculationID}/multipliers/{accountID}", profitHandler.SetMultiplier)
		r.Put("/v1/profit/calculations/{calculationID}/rates", profitHandler.SetRate)
	})

	return r
}
