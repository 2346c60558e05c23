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
	"golang.org/x/sync/errgroup"

	_ "github.com/jhoicas/vendas-estoque/docs/estoque"
	"github.com/jhoicas/vendas-estoque/internal/application/reservation"
	"github.com/jhoicas/vendas-estoque/internal/application/usecase"
	"github.com/jhoicas/vendas-estoque/internal/infrastructure/postgres"
	"github.com/jhoicas/vendas-estoque/internal/infrastructure/rabbitmq"
	infraredis "github.com/jhoicas/vendas-estoque/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/vendas-estoque/internal/interfaces/http"
	"github.com/jhoicas/vendas-estoque/migrations"
	"github.com/jhoicas/vendas-estoque/pkg/config"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
	"github.com/jhoicas/vendas-estoque/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("estoque")
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Int("workers", cfg.RabbitMQ.Workers).
		Msg("iniciando servicio de inventario")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.App.Name, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar telemetría")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, migrations.Estoque, "estoque"); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	// Caché de reservas procesadas: solo si hay REDIS_ADDR.
	var cache reservation.ProcessedCache
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer func() { _ = rdb.Close() }()
		cache = infraredis.NewProcessedCache(rdb, cfg.Redis.TTL)
	}

	processor := reservation.NewProcessor(
		postgres.NewTxRunner(pool),
		cache,
		reservation.Options{RequeueOnTransient: cfg.RabbitMQ.RequeueOnTransient},
		log.Component("reservation"),
	)

	conn, err := rabbitmq.Dial(ctx, cfg.RabbitMQ.URL, cfg.App.Name, log.Component("rabbitmq"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a RabbitMQ")
	}
	defer func() { _ = conn.Close() }()

	server := rabbitmq.NewReservationServer(
		conn,
		rabbitmq.Topology{Exchange: cfg.RabbitMQ.Exchange, Queue: cfg.RabbitMQ.Queue},
		processor,
		cfg.RabbitMQ.Workers,
		log.Component("reservation-server"),
	)

	productUC := usecase.NewProductUseCase(postgres.NewProductRepository(pool))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/estoque/swagger.json",
		Path:     "docs",
		Title:    "Estoque API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.InventoryRouter(app, httpRouter.InventoryRouterDeps{
		ProductUC: productUC,
		JWTSecret: cfg.JWT.Secret,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servicio...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del servidor")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("cierre de telemetría")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("servicio finalizado con error")
		os.Exit(1)
	}
	log.Info().Msg("servicio detenido")
}
