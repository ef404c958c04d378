package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/vladimiradmaev/diabetbot/internal/bot"
	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/config"
	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
	"github.com/vladimiradmaev/diabetbot/internal/services"
)

// sweep schedule of the in-memory session store
const janitorSchedule = "*/10 * * * *"

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.InitWithConfig(cfg.LoggerSettings()); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	logger.Info("Starting DiabetBot",
		"db_driver", cfg.DB.Driver,
		"session_store", cfg.Session.Store,
		"timezone", cfg.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connection established and migrations completed")

	sessions, closeSessions, err := openSessionStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open session store", "error", err)
	}
	defer closeSessions()

	aiService, err := services.NewAIService(ctx, cfg.GeminiAPIKey, cfg.OpenAIAPIKey)
	if err != nil {
		logger.Fatal("Failed to initialize AI service", "error", err)
	}
	defer aiService.Close()
	if !aiService.Enabled() {
		logger.Warn("No AI provider configured, photo carb estimates are disabled")
	}

	// Initialize services
	store := repository.New(db)
	resolver := services.NewResolver(store)
	svc := bot.Services{
		Users:        services.NewUserService(store),
		Insulin:      services.NewInsulinService(store),
		Resolver:     resolver,
		Factors:      services.NewFactorService(store, resolver),
		Meals:        services.NewMealService(store),
		Statistics:   services.NewStatisticsService(store, resolver),
		FoodAnalysis: services.NewFoodAnalysisService(aiService),
	}
	logger.Info("Services initialized successfully")

	telegramBot, err := bot.NewBot(cfg.TelegramToken, svc, bot.Options{
		Sessions:       sessions,
		Location:       cfg.Location(),
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}

	logger.Info("Bot is running. Press Ctrl+C to stop.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bot stopped")
}

// openSessionStore returns the configured session store and its cleanup.
func openSessionStore(cfg *config.Config) (state.Store, func(), error) {
	if cfg.Session.Store == config.StoreRedis {
		client, err := state.NewRedisClient(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		m := state.NewRedisManager(client, cfg.Session.TTL)
		return m, func() {
			if err := m.Close(); err != nil {
				logger.Warn("Failed to close Redis", "error", err)
			}
		}, nil
	}

	m := state.NewManager(cfg.Session.TTL)
	janitor, err := state.StartJanitor(m, janitorSchedule)
	if err != nil {
		return nil, nil, err
	}
	return m, func() { <-janitor.Stop().Done() }, nil
}
