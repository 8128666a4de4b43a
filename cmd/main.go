package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/analysis"
	"kiitcms/backend/internal/api/handler"
	"kiitcms/backend/internal/attachments"
	"kiitcms/backend/internal/complaint"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/feedhub"
	"kiitcms/backend/internal/localization"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/notify"
	"kiitcms/backend/internal/query"
	"kiitcms/backend/internal/storage"
	"kiitcms/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Environment)
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Stores
	db, err := storage.OpenPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}
	rdb := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	store := storage.NewStorageService(db, rdb)

	// 2. Live feed
	hub := feedhub.NewManager()
	if !hub.ListenRedis(ctx, store) {
		store.OnChange = hub.Broadcast
	}
	go hub.Run(ctx)

	// 3. Notifications
	dispatcher := notify.NewDispatcher(config.NotifyQueueSize)
	sinks := []notify.Sink{notify.InAppSink{Store: store}}
	if mailer, err := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPSkipTLSVerify); err == nil {
		sinks = append(sinks, notify.MailSink{Sender: mailer, DeptMailboxes: cfg.DeptMailboxMap(), AdminEmails: cfg.AdminEmailList()})
	} else {
		logger.Warn().Err(err).Msg("email notifications disabled")
	}

	stats := query.NewStatsAggregator(store)
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBotService(cfg.TelegramBotToken, store, stats)
		if err != nil {
			logger.Error().Err(err).Msg("telegram disabled")
		} else {
			sinks = append(sinks, &telegram.Notifier{
				Poster:     bot.Poster,
				DeptChats:  cfg.DeptTelegramChatMap(),
				AdminChats: cfg.AdminTelegramChatList(),
				Profiles:   store,
			})
			go bot.Run(ctx)
		}
	}

	consumer := notify.NewConsumer(dispatcher, notify.Renderer{Localizer: localization.Default(), Lang: localization.DefaultLanguage}, sinks...)
	go consumer.Run(ctx)

	// 4. Core services
	var ai analysis.Categorizer
	if categorizer, err := analysis.NewHTTPCategorizer(cfg.AIEndpoint, cfg.AIAPIKey, config.DepartmentNames()); err == nil {
		ai = categorizer
	} else {
		logger.Warn().Err(err).Msg("AI categorization disabled, using keyword fallback")
	}
	complaints := complaint.NewService(store, ai, dispatcher)
	complaints.AITimeout = cfg.AITimeout

	var uploads handler.Uploader
	if u, err := attachments.NewR2Uploader(ctx, attachments.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		Bucket:          cfg.R2BucketName,
		PublicURL:       cfg.R2PublicURL,
	}); err == nil {
		uploads = u
	} else {
		logger.Warn().Err(err).Msg("attachment uploads disabled")
		uploads = (*attachments.Uploader)(nil)
	}

	// 5. HTTP
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	auth := handler.NewAuthenticator(cfg.JWTSecret, access.NewResolver(store))
	h := handler.NewHandler(complaints, query.NewEngine(store), stats, store, uploads, hub, auth)
	h.AllowedOrigins = cfg.CORSOriginList()
	h.Routes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Close()
}
