package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"applyai/config"
	"applyai/domain"
	"applyai/infrastructure"
	"applyai/interfaces"
	"applyai/logger"
	"applyai/service"
)

func main() {
	// Load .env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := domain.NewValidator()

	// Quota ledger storage
	var kv service.KV = service.NewMemoryKV()
	if cfg.RedisURL != "" {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer rdb.Close()
		kv = infrastructure.NewRedisKV(rdb, "applyai:")
		log.Info("quota ledger backed by redis")
	}

	// Domain events
	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		rmq, err := infrastructure.NewRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			log.WithError(err).Fatal("connect rabbitmq")
		}
		defer rmq.Close()
		events = rmq

		if err := rmq.Consume(ctx, func(key string, body []byte) {
			log.WithFields(logrus.Fields{"event": key, "bytes": len(body)}).Info("event recorded")
		}); err != nil {
			log.WithError(err).Fatal("start event audit consumer")
		}
	}

	// Database (required in local mode, enables recruiter tools in either mode)
	var db *gorm.DB
	if cfg.DBDSN != "" {
		db, err = infrastructure.NewMySQLConnection(cfg.DBDSN, log)
		if err != nil {
			log.WithError(err).Fatal("connect database")
		}
	}

	var store *infrastructure.S3Store
	if cfg.S3.Bucket != "" {
		store, err = infrastructure.NewS3Store(ctx, infrastructure.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
		})
		if err != nil {
			log.WithError(err).Fatal("init object store")
		}
	}

	var (
		recruiter    *service.RecruiterService
		feedbackRepo service.FeedbackRepository
	)
	if db != nil {
		recruiter = service.NewRecruiterService(infrastructure.NewJobRepo(db), infrastructure.NewApplicationRepo(db), events, validate, log).
			WithMessaging(infrastructure.NewProfileRepo(db), infrastructure.NewMessageRepo(db))
		if store != nil {
			recruiter.WithResumes(store)
		}
		feedbackRepo = infrastructure.NewFeedbackRepo(db)
	}

	var (
		matcher service.Matcher
		applier service.Applier
		users   service.UserDirectory
	)
	switch cfg.Mode {
	case config.ModeLocal:
		client, err := infrastructure.NewGeminiClient(ctx, infrastructure.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Project:  cfg.GeminiProject,
			Location: cfg.GeminiLocation,
		})
		if err != nil {
			log.WithError(err).Fatal("init gemini")
		}
		matcher = infrastructure.NewGeminiMatcher(client, cfg.GeminiModel, infrastructure.NewJobRepo(db), log)
		applier = service.NewLocalApplier(store, infrastructure.NewApplicationRepo(db), events, log)
		users = infrastructure.NewUserRepo(db)
	default:
		backend := infrastructure.NewBackendClient(cfg.BackendURL, cfg.HTTPTimeout, log)
		matcher, applier, users = backend, backend, backend
	}

	results := service.NewResultStore(cfg.ResultTTL)
	defer results.Close()

	flows := service.NewFlowRegistry(matcher, results, validate, service.FlowSettings{
		ProgressInterval: cfg.ProgressInterval,
		TipInterval:      cfg.TipInterval,
		Tips:             cfg.Tips,
		IdleTTL:          cfg.ResultTTL,
	}, log)
	defer flows.Close()

	quota := service.NewQuotaLedger(kv, service.Policy{Enforce: cfg.Quota.Enforce, Limit: cfg.Quota.Limit}, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), interfaces.RequestID(log), interfaces.AccessLog())

	interfaces.NewHTTPHandler(router, &interfaces.HTTPHandler{
		Flows:        flows,
		Browser:      service.NewBrowser(results, quota, log),
		Quota:        quota,
		Applications: service.NewApplicationService(applier, log),
		Feedback:     service.NewFeedbackService(feedbackRepo, events, quota, validate, log),
		Users:        users,
		Recruiter:    recruiter,
	}, infrastructure.NewTokenVerifier(cfg.JWTSecret))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "mode": cfg.Mode}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	log.Info("stopped")
}
