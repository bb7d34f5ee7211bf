package main

import (
	"time"

	"statcard-backend/lib/cardimage"
	"statcard-backend/lib/configuration"
	"statcard-backend/lib/fetch"
	"statcard-backend/lib/serviceutil"
	"statcard-backend/lib/statcache"
	"statcard-backend/lib/telegram"
	"statcard-backend/lib/telemetry"
	"statcard-backend/services/statcard"
	statcarddb "statcard-backend/services/statcard/db"
)

func openCache(config CacheConfig, database configuration.Database) (statcache.Cache, error) {
	window := time.Duration(config.WindowSeconds) * time.Second

	switch config.Backend {
	case "redis":
		return statcache.NewRedis(statcache.RedisOptions{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
			Window:   window,
		}), nil
	case "sqlite":
		db, err := database.OpenDB(statcache.Schema)
		if err != nil {
			return nil, err
		}
		return statcache.NewSqlite(statcache.SqliteOptions{
			DB:     db,
			Window: window,
		}), nil
	default:
		return statcache.NewMemory(statcache.MemoryOptions{
			Window: window,
		}), nil
	}
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configuration.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	config.applyDefaults()

	telemetry.InitSlog(config.Debug)
	tel, err := telemetry.SetupFromEnv(ctx, "statcardd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(ctx)
	telemetry.InstrumentPerfStats(ctx)

	fetcher, err := fetch.NewPlaywright(fetch.PlaywrightOptions{
		BaseUrl:        config.Fetcher.BaseUrl,
		Timeout:        time.Duration(config.Fetcher.TimeoutSeconds) * time.Second,
		ExecutablePath: config.Fetcher.ChromiumPath,
	})
	if err != nil {
		serviceutil.Fatal("failed to start browser", err)
	}
	defer fetcher.Close()
	limited := fetch.NewLimited(fetcher, config.Fetcher.MaxSessions)

	cache, err := openCache(config.Cache, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open stats cache", err)
	}

	assets, err := cardimage.LoadAssets(config.AssetsDir)
	if err != nil {
		serviceutil.Fatal("failed to load card assets", err)
	}
	composer := cardimage.NewComposer(assets, cardimage.NewRestyImageSource())

	service := statcard.NewService(limited, cache, composer)

	userDb, err := config.Database.OpenDB(statcarddb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open user DB", err)
	}
	store := statcarddb.NewStore(userDb)

	if config.Telegram.Token != "" {
		bot := statcard.NewBot(telegram.NewClient(config.Telegram.Token), service, store)
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				serviceutil.Fatal("telegram bot stopped", err)
			}
		}()
	}

	go serviceutil.StartHttpServer(config.Port, newMux(service))

	<-ctx.Done()
}
