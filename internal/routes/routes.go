package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kredo-pay/kredo_pay/internal/admin"
	"github.com/kredo-pay/kredo_pay/internal/card"
	"github.com/kredo-pay/kredo_pay/internal/config"
	"github.com/kredo-pay/kredo_pay/internal/deposit"
	"github.com/kredo-pay/kredo_pay/internal/ledger"
	"github.com/kredo-pay/kredo_pay/internal/middleware"
	"github.com/kredo-pay/kredo_pay/internal/notification"
	"github.com/kredo-pay/kredo_pay/internal/topup"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Services holds the wired domain services for callers outside the HTTP
// layer, such as the expiry sweeper.
type Services struct {
	Deposits *deposit.Service
	Topups   *topup.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
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

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		cardRepo      card.Repository
		depositRepo   deposit.Repository
		topupRepo     topup.Repository
		ledgerBackend ledger.Ledger
	)
	if d.DB != nil {
		cardRepo = card.NewPostgresRepository(d.DB)
		depositRepo = deposit.NewPostgresRepository(d.DB)
		topupRepo = topup.NewPostgresRepository(d.DB)
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		cardRepo = card.NewMemoryRepository()
		depositRepo = deposit.NewMemoryRepository()
		topupRepo = topup.NewMemoryRepository()
		ledgerBackend = ledger.NewInMemory(cardRepo)
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)

	depositSvc, err := deposit.NewService(depositRepo, cardRepo, ledgerBackend, notifier, d.Cfg.DepositWalletAddress)
	if err != nil {
		return Services{}, err
	}
	topupSvc, err := topup.NewService(topupRepo, cardRepo, ledgerBackend, notifier, d.Cfg.SolanaWalletAddress)
	if err != nil {
		return Services{}, err
	}

	gate, err := admin.NewGate(d.Cfg.AdminAPIKey)
	if err != nil {
		return Services{}, err
	}

	depositHandler := deposit.NewHandler(depositSvc)
	topupHandler := topup.NewHandler(topupSvc)

	// API routes
	api := app.Group("/api/v1")

	userAuth := middleware.UserAuth(d.Cfg.JWTSecret)
	createLimit := middleware.CreateRateLimit(d.Cache, d.Cfg.CreateRateLimit)

	protected := api.Group("", userAuth)
	RegisterDepositRoutes(protected, depositHandler, createLimit)
	RegisterTopupRoutes(protected, topupHandler, createLimit)

	adminGroup := api.Group("/admin", middleware.AdminKey(gate))
	RegisterAdminTopupRoutes(adminGroup, topupHandler)

	return Services{Deposits: depositSvc, Topups: topupSvc}, nil
}
