package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Muizzyranking/wallet-service/internal/config"
	"github.com/Muizzyranking/wallet-service/internal/deposit"
	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/middleware"
	"github.com/Muizzyranking/wallet-service/internal/notification"
	"github.com/Muizzyranking/wallet-service/internal/paystack"
	"github.com/Muizzyranking/wallet-service/internal/transfer"
	"github.com/Muizzyranking/wallet-service/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Storage backend: Postgres in production, in-memory when no pool is
	// supplied (local runs and tests).
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	// Gateway: real Paystack client in production, static stub otherwise.
	var gw deposit.Gateway
	if d.Cfg.AppEnv == "production" || d.Cfg.PaystackBaseURL != "" {
		gw = paystack.NewClient(d.Cfg.PaystackSecretKey, d.Cfg.PaystackBaseURL, d.Logger)
	} else {
		gw = deposit.StaticGateway{}
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(ledgerBackend, d.Logger)
	depositSvc := deposit.NewService(ledgerBackend, gw, notifier, d.Logger)
	transferSvc := transfer.NewService(ledgerBackend, notifier, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	depositHandler := deposit.NewHandler(depositSvc, d.Cfg.PaystackSecretKey, d.Logger)
	transferHandler := transfer.NewHandler(transferSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// The webhook authenticates itself via the body signature, not a token.
	api.Post("/wallet/paystack/webhook", depositHandler.Webhook)

	rateLimiter := middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMin)

	// Provisioning is called service-to-service by the account collaborator.
	api.Post("/wallets", rateLimiter, walletHandler.Provision)

	authn := middleware.Auth(d.Cfg.JWTSecret)
	protected := api.Group("/wallet", authn)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterDepositRoutes(protected, depositHandler, rateLimiter)
	RegisterTransferRoutes(protected, transferHandler, rateLimiter)

	return nil
}
