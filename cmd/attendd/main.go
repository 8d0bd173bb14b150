package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"geofence-attendance-backend/config"
	"geofence-attendance-backend/internal/api"
	"geofence-attendance-backend/internal/db"
	"geofence-attendance-backend/internal/engine"
	"geofence-attendance-backend/internal/geo"
	"geofence-attendance-backend/internal/notification"
	"geofence-attendance-backend/internal/remote"
	"geofence-attendance-backend/internal/sampler"
	"geofence-attendance-backend/internal/store"
	"geofence-attendance-backend/internal/watcher"
)

const appVersion = "1.2.0"

func main() {
	logger := log.New(os.Stdout, "attendd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		logger.Fatalf("failed to load timezone %q: %v", cfg.Engine.Timezone, err)
	}

	defaultHours, err := engine.ParseWorkingHours(cfg.Engine.DefaultWorkingHours)
	if err != nil {
		logger.Fatalf("invalid default working hours %q: %v", cfg.Engine.DefaultWorkingHours, err)
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Primary connection runs the migrations; the background path opens its
	// own connection so the two contexts share only the rows, never memory.
	fgDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	bgDB, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to open background database connection: %v", err)
	}
	logger.Println("database initialized successfully")

	fgStore := store.NewGormStore(fgDB)
	bgStore := store.NewGormStore(bgDB)

	scope := store.Scope{Namespace: cfg.Remote.Namespace, UserID: cfg.Remote.UserID}
	client := remote.NewClient(&cfg.Remote)
	device := remote.DeviceInfo{
		DeviceID:   uuid.NewString(),
		Platform:   runtime.GOOS,
		AppVersion: appVersion,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dedupWindow := time.Duration(cfg.Engine.NotifyDedupSeconds) * time.Second
	notifier := notification.NewWorkerPool(cfg.WorkerPool.Size, fgDB, &webpushOptions, scope.Namespace, scope.UserID, dedupWindow)
	notifier.Start(ctx)

	filter := geo.SampleFilter{
		MaxAccuracyMeters: cfg.Engine.MaxAccuracyMeters,
		MaxSpeedMPS:       cfg.Engine.MaxSpeedMPS,
	}

	fgEngine := engine.New(engine.Options{
		Store:        fgStore,
		API:          client,
		Notifier:     notifier,
		Scope:        scope,
		Filter:       filter,
		Device:       device,
		Cooldown:     time.Duration(cfg.Engine.CooldownSeconds) * time.Second,
		GlobalLock:   time.Duration(cfg.Foreground.GlobalLockSeconds) * time.Second,
		WindowPad:    time.Duration(cfg.Engine.WindowPadMinutes) * time.Minute,
		DefaultHours: defaultHours,
		Location:     loc,
	})
	bgEngine := engine.New(engine.Options{
		Store:        bgStore,
		API:          client,
		Notifier:     notifier,
		Scope:        scope,
		Filter:       filter,
		Device:       device,
		Cooldown:     time.Duration(cfg.Engine.CooldownSeconds) * time.Second,
		GlobalLock:   time.Duration(cfg.Background.GlobalLockSeconds) * time.Second,
		WindowPad:    time.Duration(cfg.Engine.WindowPadMinutes) * time.Minute,
		DefaultHours: defaultHours,
		Location:     loc,
	})

	feed := sampler.NewFeed(cfg.Foreground.QueueSize)

	if cfg.Foreground.Enabled {
		fg := watcher.NewForeground(feed.Samples(), fgEngine, time.Duration(cfg.Foreground.DebounceSeconds)*time.Second)
		go fg.Run(ctx)
	} else {
		logger.Println("foreground watcher is disabled")
	}

	if cfg.Background.Enabled {
		bg := watcher.NewBackground(bgEngine, feed, cfg.Background.Interval)
		go bg.Run(ctx)
	} else {
		logger.Println("background runner is disabled")
	}

	handler := api.NewHandler(fgStore, scope, fgEngine, feed, client, &webpushOptions)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
