package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"loottracker/shared/albion"
	"loottracker/shared/monitoring"
	"loottracker/shared/prices"
	"loottracker/shared/rabbit"
	"loottracker/shared/storage"
	"loottracker/shared/tracker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	defer func() {
		if r := recover(); r != nil {
			handlePanic(r)
		}
	}()

	db, err := storage.Connect()
	if err != nil {
		log.Fatalf("Error connecting to the database: %s", err)
	}
	defer db.Close()

	kv, err := storage.NewKV(db)
	if err != nil {
		log.Fatalf("Error preparing storage: %s", err)
	}

	cache, err := prices.OpenCache(cachePath(), 30*time.Minute)
	if err != nil {
		// The cache is an optimization. Without it every lookup hits the
		// price API, which is slower but correct.
		log.Printf("Error opening price cache, continuing without: %s", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	client := albion.NewClient()
	priceClient := prices.NewClient(cache)
	opts := tracker.Options{
		Source:  client,
		Prices:  priceClient,
		Store:   kv,
		Alerter: discordAlerter{},
	}

	if os.Getenv("RABBITMQ_USER") != "" {
		conn, err := rabbit.Init()
		if err != nil {
			log.Printf("Error connecting to rabbitmq, kills will not be archived: %s", err)
		} else {
			defer rabbit.Cleanup()
			publisher, err := rabbit.NewKillPublisher(conn)
			if err != nil {
				log.Printf("Error creating kill publisher: %s", err)
			} else {
				defer publisher.Close()
				opts.Publisher = publisher
			}
		}
	}

	engine := tracker.New(opts)

	monitoring.RegisterPrometheus(8080)
	sendStartUpAlert()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller, err := tracker.NewPoller(engine, pollInterval())
	if err != nil {
		log.Fatalf("Error creating poller: %s", err)
	}
	defer poller.Stop()

	resumed, err := engine.Restore()
	if err != nil {
		log.Fatalf("Error restoring state: %s", err)
	}
	if resumed {
		if err := poller.Start(ctx, false); err != nil {
			log.Fatalf("Error starting poller: %s", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName: "loottracker",
	})
	registerRoutes(app, engine, poller, client, priceClient, ctx)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		app.Shutdown()
	}()

	if err := app.Listen(":" + port()); err != nil {
		log.Fatalf("Error serving http: %s", err)
	}
}

func port() string {
	if p := os.Getenv("TRACKER_PORT"); p != "" {
		return p
	}
	return "8000"
}

func cachePath() string {
	if p := os.Getenv("PRICE_CACHE_PATH"); p != "" {
		return p
	}
	return "prices.sqlite3"
}

func pollInterval() time.Duration {
	raw := os.Getenv("POLL_INTERVAL")
	if raw == "" {
		return tracker.DefaultPollInterval
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Error parsing POLL_INTERVAL %q, using default: %s", raw, err)
		return tracker.DefaultPollInterval
	}
	return interval
}
