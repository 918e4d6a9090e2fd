// Package bot is the operator channel: a Telegram bot that forwards tagged
// log records (registrations, errors) to the configured admin chats and
// answers a few lookup commands against the store.
//
//   - tgbot.go     TgBot, lifecycle (Start/Stop), Database interface
//   - commands.go  /start, /stop, /level, /topics, /subscribe, /unsubscribe,
//     /tiers, /user, /status, /help
//   - messaging.go per-admin subscriptions and topic routing
//   - menus.go     command menus via BotCommandScope
//   - helpers.go   sending, formatting and error reporting
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tiergate/entity"
	"tiergate/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

const storeTimeout = 10 * time.Second

// Database is the read side of the store the lookup commands use.
type Database interface {
	TierRequirements(ctx context.Context) ([]entity.TierRequirement, error)
	UserByUsername(ctx context.Context, username string) (*entity.User, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	db      Database
	mu      sync.RWMutex // guards subs
	subs    map[int64]*subscription
	updater *ext.Updater
	send    func(chatId int64, text string)
}

// NewTgBot creates the bot; only chats listed in adminIds are served and
// notified. Admins start subscribed to every topic at info level.
func NewTgBot(apiKey string, db Database, adminIds []int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:  log.With(sl.Module("tgbot")),
		db:   db,
		subs: newSubscriptions(adminIds),
	}
	tgBot.send = tgBot.plainResponse

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// Start polls for updates and blocks until Stop.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("stop", t.stop))
	dispatcher.AddHandler(handlers.NewCommand("level", t.level))
	dispatcher.AddHandler(handlers.NewCommand("topics", t.topics))
	dispatcher.AddHandler(handlers.NewCommand("subscribe", t.subscribe))
	dispatcher.AddHandler(handlers.NewCommand("unsubscribe", t.unsubscribe))
	dispatcher.AddHandler(handlers.NewCommand("tiers", t.tiers))
	dispatcher.AddHandler(handlers.NewCommand("user", t.user))
	dispatcher.AddHandler(handlers.NewCommand("status", t.status))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	t.setDefaultCommands()
	t.syncAdminMenus()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.log.With(slog.Int("admins", len(t.adminIds()))).Info("telegram bot started")
	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
