package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	"github.com/tapcardhq/tapcard/internal/pkg/cache"
	"github.com/tapcardhq/tapcard/internal/pkg/database"
	"github.com/tapcardhq/tapcard/internal/pkg/env"
	"github.com/tapcardhq/tapcard/internal/pkg/jobqueue"
	"github.com/tapcardhq/tapcard/internal/pkg/router"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

func main() {
	app := NewApplication()

	// background workers
	queueManager := jobqueue.GetManager()
	queueManager.Start()

	sweeper := startExpirySweep()

	// graceful shutdown on SIGINT/SIGTERM
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		log.Print("shutting down...")
		sweeper.Stop()
		queueManager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // webhook and JSON payloads only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startExpirySweep schedules the reconciliation pass that drops users whose
// paid period has lapsed back to the basic tier.
func startExpirySweep() *cron.Cron {
	c := cron.New()

	schedule := env.GetEnv("EXPIRY_SWEEP_SCHEDULE", "@hourly")
	_, err := c.AddFunc(schedule, func() {
		mgr := subscription.NewManagerFromDB(database.GetDB(), nil)
		if _, err := mgr.ExpireLapsed(context.Background()); err != nil {
			log.Printf("expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("invalid EXPIRY_SWEEP_SCHEDULE %q: %v", schedule, err)
	}

	c.Start()
	return c
}
