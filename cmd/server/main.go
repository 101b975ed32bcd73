package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dealership-backend/internal/admin"
	"dealership-backend/internal/audit"
	"dealership-backend/internal/auth"
	"dealership-backend/internal/commission"
	"dealership-backend/internal/config"
	"dealership-backend/internal/dashboard"
	"dealership-backend/internal/database"
	"dealership-backend/internal/events"
	"dealership-backend/internal/financial"
	"dealership-backend/internal/goal"
	"dealership-backend/internal/models"
	"dealership-backend/internal/ratelimit"
	"dealership-backend/internal/rules"
	"dealership-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Kural dosyası geçersizse sunucu başlamaz
	ruleStore := rules.NewStore(database.DB)
	if err := ruleStore.LoadFile(ctx, cfg.RulesFile); err != nil {
		log.Fatalf("[FATAL] Komisyon kuralları yüklenemedi: %v", err)
	}

	publisher := events.Connect(cfg.RedisURL, cfg.EventsChannel)
	if rp, ok := publisher.(*events.RedisPublisher); ok {
		defer rp.Close()
	}

	commissions := commission.NewService(database.DB, ruleStore,
		commission.WithPublisher(publisher),
		commission.WithPaymentTermDays(cfg.PaymentTermDays),
	)
	saleService := sales.NewService(database.DB, commissions)
	tracker := goal.NewTracker(database.DB)

	limiter := ratelimit.New(cfg.CommandRateLimit, cfg.CommandRateBurst)
	limiter.StartCleanup(ctx)
	goal.StartScheduler(ctx, tracker, cfg.GoalRefreshInterval)

	app := fiber.New(fiber.Config{
		ErrorHandler: commission.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(database.DB))
	api.Post("/auth/login", auth.LoginHandler(database.DB, cfg.JWTSecret))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(database.DB))

	// Komisyon yaşam döngüsü; komutlar kullanıcı başına sınırlandırılır
	commission.Routes(protected, commissions, limiter.Middleware())
	sales.Routes(protected, saleService, limiter.Middleware())

	// Hedefler
	goal.Routes(protected, database.DB, tracker)

	// Raporlar
	protected.Get("/financial-summary/monthly",
		auth.RequireRole(models.RoleAdmin, models.RoleFinance),
		financial.MonthlyCommissionSummaryHandler(database.DB))
	protected.Get("/financial-summary/monthly/export",
		auth.RequireRole(models.RoleAdmin, models.RoleFinance),
		financial.MonthlyCommissionExportHandler(database.DB))
	protected.Get("/dashboard/commission-chart", dashboard.CommissionChartHandler(database.DB))

	// Audit logs
	protected.Get("/audit-logs",
		auth.RequireRole(models.RoleAdmin, models.RoleManager),
		audit.ListAuditLogsHandler(database.DB))

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", admin.CreateUserHandler(database.DB))
	adminRoutes.Get("/users", admin.ListUsersHandler(database.DB))
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler(database.DB))

	adminRoutes.Get("/commission-rules", rules.ListHandler(ruleStore))
	adminRoutes.Post("/commission-rules/reload", rules.ReloadHandler(ruleStore, cfg.RulesFile))

	go func() {
		<-ctx.Done()
		log.Println("Kapatılıyor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Kapatma hatası: %v", err)
		}
	}()

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
