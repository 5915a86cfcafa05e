package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/accessapis/geogate/internal/census"
	"github.com/accessapis/geogate/internal/config"
	"github.com/accessapis/geogate/internal/database"
	"github.com/accessapis/geogate/internal/handler"
	"github.com/accessapis/geogate/internal/middleware"
	"github.com/accessapis/geogate/internal/queue"
	"github.com/accessapis/geogate/internal/repository"
	"github.com/accessapis/geogate/internal/router"
	"github.com/accessapis/geogate/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	var counter middleware.Counter
	if rdb != nil {
		counter = &middleware.RedisCounter{RDB: rdb}
	} else {
		log.Printf("redis unavailable; rate limiting falls back to in-process counters, response caching disabled")
		counter = middleware.NewMemoryCounter()
	}

	keys := repository.NewKeyRepo(db)
	usage := repository.NewUsageRepo(db)
	manager := service.NewKeyManager(keys, cfg.BcryptCost)

	// Usage audit consumer; reconnects forever on its own.
	go func() {
		if err := queue.StartUsageConsumer(); err != nil {
			log.Printf("usage consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{
			"http://localhost:4200",
			"http://127.0.0.1:4200",
			"https://api.accessapis.com",
			"https://accessapis.com",
			"http://accessapis.com",
		},
		AllowMethods:     []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.HeaderAPIKey},
		AllowCredentials: true,
	}))

	router.RegisterRoutes(e)
	router.RegisterAPIKey(e, handler.NewAPIKeyHandler(manager), cfg.ProvisionSecret)
	router.RegisterAPI(e,
		handler.NewGeoHandler(census.New(cfg.CensusBaseURL)),
		handler.NewUsageHandler(usage),
		middleware.APIKeyAuth(keys),
		middleware.NewFixedWindow(config.LoadRateLimitConfig(), counter),
		middleware.UsageTracking(usage),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
