package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiergate/bot"
	"tiergate/entity"
	"tiergate/impl/auth"
	"tiergate/impl/core"
	"tiergate/internal/config"
	"tiergate/internal/database"
	"tiergate/internal/http-server/api"
	"tiergate/internal/ipresolve"
	"tiergate/internal/tablestore"
	"tiergate/lib/logger"
	"tiergate/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting tiergate", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, conf, log)
	if err != nil {
		log.Error("open store", sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, store, conf.Telegram.AdminIds, log)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			go func() {
				if err := tgBot.Start(); err != nil {
					log.Error("telegram bot", sl.Err(err))
				}
			}()
			defer tgBot.Stop()
			log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, slog.LevelError))
			log.Info("telegram bot enabled", slog.Int("admins", len(conf.Telegram.AdminIds)))
		}
	}

	resolver := ipresolve.NewResolver(
		ipresolve.NewLookup(ipresolve.Config{URL: conf.IPLookup.URL, Timeout: conf.IPLookup.Timeout}, log),
		log,
	)
	handler := core.New(store, resolver, core.Config{
		PublicURL:    conf.Site.PublicURL,
		TelegramURL:  conf.Site.TelegramURL,
		MediaBaseURL: conf.Site.MediaBaseURL,
		PreviewFiles: conf.Site.PreviewFiles,
	}, log)
	handler.SetAuthService(auth.New(store))

	errc := make(chan error, 1)
	go func() {
		errc <- api.New(conf, log, handler)
	}()

	select {
	case err = <-errc:
		log.Error("server stopped", sl.Err(err))
	case <-ctx.Done():
		log.Info("shutting down", slog.String("reason", ctx.Err().Error()))
	}
}

// openStore connects the configured backend. The mongo backend gets its
// unique indexes and the tier table from the config before serving.
func openStore(ctx context.Context, conf *config.Config, log *slog.Logger) (core.Store, func(), error) {
	if conf.Store.Driver != config.DriverMongo {
		client := tablestore.NewClient(tablestore.Config{
			URL:     conf.Store.URL,
			APIKey:  conf.Store.APIKey,
			Timeout: conf.Store.Timeout,
		}, log)
		log.Info("using table store", slog.String("url", conf.Store.URL))
		return tablestore.NewStore(client), func() {}, nil
	}

	mongo, err := database.NewMongoClient(ctx, conf.Mongo, log)
	if err != nil {
		return nil, nil, err
	}
	closeMongo := func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(c)
	}
	if err = mongo.EnsureIndexes(ctx); err != nil {
		closeMongo()
		return nil, nil, err
	}
	if len(conf.Tiers) > 0 {
		if err = mongo.SeedTierRequirements(ctx, tierTable(conf.Tiers)); err != nil {
			closeMongo()
			return nil, nil, err
		}
	}
	return mongo, closeMongo, nil
}

func tierTable(tiers []config.TierConfig) []entity.TierRequirement {
	table := make([]entity.TierRequirement, 0, len(tiers))
	for _, t := range tiers {
		table = append(table, entity.TierRequirement{
			Tier:               t.Tier,
			ContentDescription: t.ContentDescription,
			PriceUSD:           t.PriceUSD,
			RequiredInvites:    t.RequiredInvites,
		})
	}
	return table
}
