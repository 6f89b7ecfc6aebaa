package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"treewatch/internal/admin"
	"treewatch/internal/bus"
	"treewatch/internal/calendar"
	"treewatch/internal/config"
	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/httpapi"
	"treewatch/internal/identity"
	"treewatch/internal/lifecycle"
	"treewatch/internal/logger"
	"treewatch/internal/matcher"
	"treewatch/internal/pushbus"
	"treewatch/internal/scheduler"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
	"treewatch/internal/treerepo"
	"treewatch/internal/utils"
	"treewatch/internal/weather"
)

func main() {
	app := &cli.App{
		Name:  "treewatch",
		Usage: "Real-time alert dispatch and volunteer-matching engine for tree care",
		Commands: []*cli.Command{
			{Name: "server", Usage: "Start the dispatch engine HTTP API, Push Bus, and sweeps", Action: runServer},
			{Name: "migrate", Usage: "Apply the store schema", Action: runMigrate},
			{Name: "seed", Usage: "Insert fixture trees and volunteers for local development", Action: runSeed},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseDatabase splits a DB_URL of the form sqlite://path or postgres://...
// into a database/sql driver name and DSN, the same split the teacher's
// cmd/server uses for its ent.Open call.
func parseDatabase(dbURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dbURL, "sqlite://") + "?_fk=1", nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DB_URL %q (use sqlite:// or postgres://)", dbURL)
	}
}

func runMigrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	driver, dsn, err := parseDatabase(cfg.DBURL)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()

	if _, err := db.Exec(store.Schema(driver)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	log.Printf("treewatch: schema applied (%s)", driver)
	return nil
}

func runSeed(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	driver, dsn, err := parseDatabase(cfg.DBURL)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()

	if _, err := db.Exec(store.Schema(driver)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if _, err := db.Exec(
		rebindForSeed(driver, `INSERT INTO trees (id, name, species, lat, lng, active) VALUES ($1,$2,$3,$4,$5,$6)`),
		"seed-tree-1", "Courthouse Oak", "oak", 40.7128, -74.0060, true,
	); err != nil {
		return fmt.Errorf("seed tree: %w", err)
	}

	password, err := utils.GenerateSecurePassword()
	if err != nil {
		return fmt.Errorf("generate seed volunteer credential: %w", err)
	}
	log.Printf("treewatch: seed volunteer credential (dev only, not a real password hash): %s", password)

	if _, err := db.Exec(
		rebindForSeed(driver, `INSERT INTO volunteers (id, email, credential_hash, role, availability, active, lat, lng) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`),
		"seed-volunteer-1", "volunteer@example.com", password, string(enum.RoleVolunteer), string(enum.VolunteerAvailable), true, 40.7130, -74.0055,
	); err != nil {
		return fmt.Errorf("seed volunteer: %w", err)
	}

	jwt := identity.NewJWTService(cfg.JWTSecret)
	token, err := jwt.IssueToken("seed-volunteer-1", enum.RoleVolunteer, enum.SubjectTypeVolunteer, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("issue seed volunteer token: %w", err)
	}

	log.Println("treewatch: seeded 1 tree, 1 volunteer")
	log.Printf("treewatch: seed volunteer bearer token: %s", token)
	return nil
}

// rebindForSeed lets the fixture inserts above use $N placeholders
// regardless of driver, mirroring internal/store's own rebind helper.
func rebindForSeed(driver, query string) string {
	if driver != "sqlite3" {
		return query
	}
	out := query
	for i := 1; i <= 9; i++ {
		out = strings.ReplaceAll(out, fmt.Sprintf("$%d", i), "?")
	}
	return out
}

func runServer(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, zapLog := logger.PrepareLogger(ctx)
	ctx = logger.WithComponent(ctx, "main")
	defer func() { _ = logger.Sync(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zapLog.Info("shutdown signal received")
		cancel()
	}()

	driver, dsn, err := parseDatabase(cfg.DBURL)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()
	if _, err := db.Exec(store.Schema(driver)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	trees := treerepo.NewSQLRepository(db)
	alertStore := store.NewSQLAlertStore(db, driver)
	volunteerStore := store.NewSQLVolunteerStore(db, driver)

	identitySvc := identity.NewJWTService(cfg.JWTSecret)

	var pubsub bus.PubSub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		pubsub = bus.NewRedisPubSub(redis.NewClient(opts))
		zapLog.Info("using Redis pub/sub", zap.String("url", cfg.RedisURL))
	} else {
		pubsub = bus.NewMemoryPubSub()
		zapLog.Info("using in-memory pub/sub (single-instance mode)")
	}

	push := pushbus.New(pubsub, pushbus.Config{
		AllowedOrigins: []string{cfg.AllowedClientOrigin},
		Identity:       identitySvc,
	})

	matchRadiusMeters := cfg.VolunteerMatchRadiusKM * 1000
	m := matcher.New(volunteerStore)
	engine := dispatch.New(trees, alertStore, m, push, matchRadiusMeters)
	lm := lifecycle.New(alertStore, volunteerStore, push)

	var weatherProvider weather.Provider
	if cfg.WeatherAPIKey != "" {
		weatherProvider = weather.NewHTTPProvider("https://api.openweathermap.org", cfg.WeatherAPIKey, zapLog)
	}

	var calendarProvider calendar.Provider
	if cfg.CalendarClientID != "" && cfg.CalendarSystemRefreshToken != "" {
		calendarProvider = calendar.NewRefreshTokenProvider(calendar.OAuth2Config{
			ClientID:           cfg.CalendarClientID,
			ClientSecret:       cfg.CalendarClientSecret,
			SystemRefreshToken: cfg.CalendarSystemRefreshToken,
			TokenURL:           cfg.CalendarTokenURL,
			EventsURL:          cfg.CalendarEventsURL,
		})
	}

	thresholdConfig := threshold.Config{
		TempHigh:      cfg.ThresholdTempHigh,
		WindHigh:      cfg.ThresholdWindHigh,
		RainLow:       cfg.ThresholdRainLow,
		StormKeywords: cfg.StormKeywords,
	}

	var weatherSweep *scheduler.WeatherSweep
	var weatherSweeper *scheduler.Sweeper
	if weatherProvider != nil {
		weatherSweep = scheduler.NewWeatherSweep(trees, weatherProvider, engine, thresholdConfig)
		weatherSweeper = scheduler.NewSweeper("weather", cfg.WeatherPollInterval, weatherSweep.Run)
		weatherSweeper.Start(ctx)
		defer weatherSweeper.Stop()
	} else {
		zapLog.Warn("WEATHER_API_KEY not set: weather sweep disabled")
	}

	retrySweep := scheduler.NewRetrySweep(alertStore, trees, m, push)
	retrySweeper := scheduler.NewSweeper("retry", cfg.RetryPollInterval, retrySweep.Run)
	retrySweeper.Start(ctx)
	defer retrySweeper.Stop()

	var calendarSweep *scheduler.CalendarSweep
	var calendarSweeper *scheduler.Sweeper
	if calendarProvider != nil {
		calendarSweep = scheduler.NewCalendarSweep(trees, calendarProvider, alertStore, engine, cfg.CalendarCareKeywords)
		calendarSweeper = scheduler.NewSweeper("calendar", cfg.CalendarPollInterval, calendarSweep.Run)
		calendarSweeper.Start(ctx)
		defer calendarSweeper.Stop()
	} else {
		zapLog.Warn("calendar credentials not set: calendar sweep disabled")
	}

	adminFacade := admin.New(lm, alertStore, weatherSweep, retrySweep, calendarSweep)

	router := httpapi.NewRouter(httpapi.Config{
		Identity:            identitySvc,
		Dispatch:            engine,
		Lifecycle:           lm,
		Admin:               adminFacade,
		Alerts:              alertStore,
		Volunteers:          volunteerStore,
		Push:                push,
		AllowedClientOrigin: cfg.AllowedClientOrigin,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLog.Info("treewatch server starting", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zapLog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown error", zap.Error(err))
	}

	return nil
}
