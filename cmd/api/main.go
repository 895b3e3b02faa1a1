package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/TienNguyen2803/O-M-Inventory-sub001/docs"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/infrastructure/events"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/infrastructure/postgres"
	httpRouter "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/interfaces/http"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/pkg/config"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/pkg/logger"
)

// @title           O&M Inventory API
// @version         1.0
// @description     Kardex de materiales y conteo físico con conciliación.
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in              header
// @name            Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		n, err := postgres.Migrate(ctx, pool, log.Component("migrate"))
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Int("applied", n).Msg("migraciones aplicadas")
	}

	// Eventos del kardex: sin REDIS_URL no se publica nada.
	var publisher ports.EventPublisher = events.Noop{}
	if cfg.Events.RedisURL != "" {
		rdb, err := events.NewRedis(ctx, cfg.Events.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, cfg.Events.Queue, log.Component("events"))
	}

	txRunner := postgres.NewTxRunner(pool, cfg.Stocktake.TxIsolation)
	stores := postgres.NewStores(pool)

	ledgerProc := ledger.NewMovementProcessor(txRunner, publisher, log.Component("ledger"))
	stocktakeSvc := stocktake.NewService(txRunner, stores, publisher, log.Component("stocktake"), stocktake.Config{
		BulkLimit:  cfg.Stocktake.BulkLimit,
		CodePrefix: cfg.Stocktake.CodePrefix,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "O&M Inventory API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stocktakes: stocktakeSvc,
		Ledger:     ledgerProc,
		JWTSecret:  cfg.JWT.Secret,
		Log:        log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
