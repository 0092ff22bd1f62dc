package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zetta/internal/config"
	"zetta/internal/database"
	"zetta/internal/domain/auth"
	"zetta/internal/domain/interest"
	"zetta/internal/domain/notification"
	"zetta/internal/domain/session"
	"zetta/internal/middleware"
	"zetta/internal/pkg/apiclient"
	jwtsvc "zetta/internal/pkg/jwt"
	"zetta/internal/pkg/logger"
	"zetta/internal/realtime"
)

const (
	accessTokenTTL  = 24 * time.Hour
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logg.Sync() }()

	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" || cfg.AppEnv == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	var rdb *redis.Client
	if cfg.UsesRedisBroadcast() || cfg.UsesRedisReadState() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logg.Fatal("redis unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}

	persister, err := buildPersister(cfg, rdb, logg)
	if err != nil {
		logg.Fatal("read-state storage", zap.Error(err))
	}
	broadcaster := buildBroadcaster(cfg, rdb, logg)

	api := apiclient.New(cfg.BackendURL, cfg.BackendPrefix, cfg.BackendToken, cfg.BackendTimeout)
	j := jwtsvc.New(cfg.JWTSecret, accessTokenTTL)

	hub := notification.NewHub(logg)
	presenter := notification.NewPresenter(hub, notification.NewSoundBank(cfg.SoundsDir), logg)
	store := notification.NewStore(
		interest.NewClient(api, logg),
		persister,
		logg,
		notification.WithRecentLimit(cfg.RecentLimit),
		notification.WithEffects(presenter),
	)
	ingestor := notification.NewIngestor(broadcaster, store, notification.IngestConfig{
		Channel:   cfg.InterestChannel,
		Namespace: cfg.EventNamespace,
	}, logg)
	sessions := session.NewService(api, auth.NewClient(api), store, presenter, ingestor, j, session.Config{
		DefaultToken:         cfg.BackendToken,
		ResetClearsReadState: cfg.ResetClearsReadState,
	}, logg)

	// A configured service token opens the session right away.
	if cfg.BackendToken != "" {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		if _, err := sessions.Login(ctx, ""); err != nil {
			logg.Warn("startup login failed", zap.Error(err))
		}
		cancel()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(logg), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		_, signedIn := sessions.Current()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"session":     signedIn,
			"subscribed":  ingestor.Subscribed(),
			"connections": hub.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/sounds", cfg.SoundsDir)
	notification.RegisterWSRoutes(r, notification.NewWSHandler(hub, j, store, cfg.CORSAllowedOrigins, logg))

	sessionHandler := session.NewHandler(sessions)
	v1 := r.Group("/api/v1")
	{
		// public
		session.RegisterPublicRoutes(v1, sessionHandler)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		{
			notification.RegisterRoutes(protected, notification.NewHandler(store, presenter, logg))
			session.RegisterProtectedRoutes(protected, sessionHandler)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logg.Info("shutting down")

	ingestor.Unsubscribe()
	if err := broadcaster.Close(); err != nil {
		logg.Warn("close broadcaster", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("http shutdown", zap.Error(err))
	}
}

func buildPersister(cfg *config.Config, rdb *redis.Client, logg *zap.Logger) (notification.Persister, error) {
	if cfg.UsesRedisReadState() {
		logg.Info("read-state in redis", zap.String("prefix", cfg.RedisPrefix))
		return notification.NewRedisPersister(rdb, cfg.RedisPrefix+"zetta:"), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		return nil, err
	}
	p := notification.NewSQLPersister(db)
	if err := p.Migrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func buildBroadcaster(cfg *config.Config, rdb *redis.Client, logg *zap.Logger) realtime.Broadcaster {
	if cfg.UsesRedisBroadcast() {
		logg.Info("listening to laravel redis broadcaster", zap.String("prefix", cfg.RedisPrefix))
		return realtime.NewRedisBroadcaster(rdb, cfg.RedisPrefix, cfg.SubscribeTimeout, logg)
	}

	logg.Info("listening to reverb", zap.String("host", cfg.ReverbHost), zap.Int("port", cfg.ReverbPort))
	return realtime.NewPusherClient(realtime.PusherConfig{
		URL:              cfg.ReverbURL(),
		SubscribeTimeout: cfg.SubscribeTimeout,
	}, logg)
}
