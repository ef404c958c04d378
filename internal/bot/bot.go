package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/bot/handlers"
	"github.com/vladimiradmaev/diabetbot/internal/bot/menus"
	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
	"github.com/vladimiradmaev/diabetbot/internal/services"
)

// Options tunes the bot runtime
type Options struct {
	Sessions       state.Store
	Location       *time.Location
	RequestTimeout time.Duration
}

type Bot struct {
	api            *tgbotapi.BotAPI
	updateHandler  *handlers.UpdateHandler
	requestTimeout time.Duration
}

// Services bundles what the dialogs run on
type Services struct {
	Users        *services.UserService
	Insulin      *services.InsulinService
	Resolver     *services.Resolver
	Factors      *services.FactorService
	Meals        *services.MealService
	Statistics   *services.StatisticsService
	FoodAnalysis *services.FoodAnalysisService
}

func NewBot(token string, svc Services, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Bot authorized", "account", api.Self.UserName)

	if _, err := api.Request(menus.BotCommands()); err != nil {
		logger.Warn("Failed to register bot commands", "error", err)
	}

	var engineOpts []flow.EngineOption
	if opts.Location != nil {
		engineOpts = append(engineOpts, flow.WithLocation(opts.Location))
	}
	engine := flow.NewEngine(flow.Deps{
		Insulin:    svc.Insulin,
		Resolver:   svc.Resolver,
		Factors:    svc.Factors,
		Meals:      svc.Meals,
		Statistics: svc.Statistics,
		Food:       svc.FoodAnalysis,
	}, opts.Sessions, handlers.NewTelegramChannel(api), engineOpts...)

	return &Bot{
		api: api,
		updateHandler: handlers.NewUpdateHandler(api, handlers.Dependencies{
			UserService: svc.Users,
			Engine:      engine,
		}),
		requestTimeout: opts.RequestTimeout,
	}, nil
}

// Start polls for updates until ctx is done. Each update is handled in its
// own goroutine; the engine serializes updates of the same user.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down")
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handle(ctx, update)
			}()
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) {
	ctx = logger.NewContext(ctx, "request_id", uuid.NewString(), "update_id", update.UpdateID)
	if b.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.requestTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Panic while handling update", "panic", r)
		}
	}()

	if err := b.updateHandler.Handle(ctx, update); err != nil {
		logger.FromContext(ctx).Warn("Update handling failed", "error", err)
	}
}
