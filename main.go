package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krish-Depani/order-session-api/config"
	"github.com/Krish-Depani/order-session-api/controllers"
	"github.com/Krish-Depani/order-session-api/database"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/routes"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	if err := utils.SetupLogger(env.LogLevel, gin.Mode() != gin.ReleaseMode); err != nil {
		log.Fatal().Err(err).Str("level", env.LogLevel).Msg("Invalid log level")
	}

	pgClient, err := database.NewPostgresClient(env.DBURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	defer database.Close(pgClient)

	if err := database.AutoMigrate(pgClient); err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}

	var cache database.SessionCache
	if env.RedisAddr != "" {
		redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", env.RedisAddr).Msg("Error connecting to redis")
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		log.Warn().Msg("REDIS_ADDR not set, session cache disabled")
	}

	tokens, err := utils.NewTokenService(env.AccessSecret, env.RefreshSecret, env.AccessTTL, env.RefreshTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring tokens")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := database.NewSessionStore(pgClient, cache, env.AccessTTL)
	reaper := database.StartSessionReaper(ctx, sessions, env.SessionReapInterval)
	defer reaper.Stop()

	engine := reports.NewEngine(pgClient)
	router := routes.NewRouter(routes.Controllers{
		Auth:      controllers.NewAuthController(pgClient, sessions, tokens),
		User:      controllers.NewUserController(pgClient, sessions),
		Product:   controllers.NewProductController(pgClient, engine),
		Order:     controllers.NewOrderController(pgClient, engine),
		OrderItem: controllers.NewOrderItemController(pgClient, engine),
	})

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
