package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/database"
	"github.com/iliyamo/theatre-reservation/internal/media"
	"github.com/iliyamo/theatre-reservation/internal/queue"
	"github.com/iliyamo/theatre-reservation/internal/router"
	"github.com/iliyamo/theatre-reservation/internal/service"
)

func main() {
	cfg, err := config.Load() // Load environment config; every missing variable is listed at once
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg) // connects and applies pending migrations
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is disabled or unreachable
	if rdb == nil {
		log.Printf("redis unavailable: response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	mcfg := config.LoadMediaConfig()
	storage, err := media.New(ctx, mcfg)
	if err != nil {
		log.Fatalf("media: %v", err)
	}

	var pub service.Publisher = service.NopPublisher{}
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		pub = service.NewAMQPPublisher(qcfg.URL)
		go func() {
			if err := queue.StartBookingConsumer(ctx, qcfg.URL, qcfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	if cfg.Env == "dev" {
		e.Logger.SetLevel(gommonlog.DEBUG)
	} else {
		e.Logger.SetLevel(gommonlog.INFO)
	}
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("12M"))

	router.Setup(e, router.Deps{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Media:     mcfg,
		Storage:   storage,
		Publisher: pub,
	})

	addr := ":" + cfg.Port                                                      // Address string with port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver) // Print startup info
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
