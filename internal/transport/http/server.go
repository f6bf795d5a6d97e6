package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"time"

	"teslabooking/internal/cache"
	"teslabooking/internal/config"
	"teslabooking/internal/database"
	"teslabooking/internal/email"
	"teslabooking/internal/handler"
	"teslabooking/internal/i18n"
	"teslabooking/internal/logging"
	"teslabooking/internal/metrics"
	"teslabooking/internal/model"
	"teslabooking/internal/queue"
	"teslabooking/internal/redis"
	"teslabooking/internal/repository"
	"teslabooking/internal/service"
	"teslabooking/internal/worker"
)

const (
	signInRateLimit   = 10
	signInRateWindow  = time.Minute
	streamMaxLen      = 10000
	tokenPurgeEvery   = 6 * time.Hour
	tokenPurgeAfter   = 7 * 24 * time.Hour
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Run wires the service together and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	subscriptionRepo := repository.NewPushSubscriptionRepository(db)
	partnerRepo := repository.NewPartnerTokenRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// Redis is optional: without it bookings are not streamed to the worker
	// and rate limits are kept per process.
	var (
		rdb           *redis.Client
		publisher     queue.Publisher
		signInLimiter cache.RateLimiter
		chatLimiter   cache.RateLimiter
	)
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		publisher = queue.NewPublisher(rdb.Client, streamMaxLen)
		signInLimiter = cache.NewRedisRateLimiter(rdb.Client, "signin", signInRateLimit, signInRateWindow)
		chatLimiter = cache.NewRedisRateLimiter(rdb.Client, "chat", cfg.ChatRateLimit, cfg.ChatRateWindow)
		logger.Info("redis enabled", "stream", queue.StreamBookings)
	} else {
		signInLimiter = cache.NewMemoryRateLimiter(signInRateLimit, signInRateWindow)
		chatLimiter = cache.NewMemoryRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
		logger.Warn("REDIS_URL not set, booking events disabled and rate limits are per process")
	}

	var mailer service.Mailer
	if pm := email.NewClient(cfg.PostmarkServerToken, cfg.PostmarkFrom); pm.Configured() {
		mailer = pm
		logger.Info("postmark mail enabled")
	} else {
		logger.Warn("POSTMARK_SERVER_TOKEN not set, password reset links are not mailed")
	}

	senders := service.PlatformSender{}
	if cfg.FCMConfigured() {
		fcm, err := service.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMClientEmail, cfg.FCMPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to initialize fcm: %w", err)
		}
		senders[model.PlatformIOS] = fcm
		senders[model.PlatformAndroid] = fcm
	}
	var vapidPublicKey string
	if cfg.WebPushConfigured() {
		senders[model.PlatformWeb] = service.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		vapidPublicKey = cfg.VAPIDPublicKey
	}
	logger.Info("push senders", "fcm", cfg.FCMConfigured(), "web", cfg.WebPushConfigured())

	authService := service.NewAuthService(userRepo, refreshRepo, resetRepo, cfg)
	userService := service.NewUserService(userRepo, roleRepo, authService, mailer, cfg.AppBaseURL)
	appointmentService := service.NewAppointmentService(appointmentRepo, publisher, m)
	notificationService := service.NewNotificationService(subscriptionRepo, senders, m)
	partnerService := service.NewPartnerService(partnerRepo, cfg.PartnerDomain, cfg.PartnerDefaultRegion)
	chatService := service.NewChatService(cfg.AIGatewayURL, cfg.AIGatewayAPIKey, cfg.AIModel, nil)
	mediaService, err := service.NewMediaService(ctx, cfg, photoRepo, appointmentRepo)
	if err != nil {
		return fmt.Errorf("failed to initialize photo storage: %w", err)
	}
	logger.Info("photo storage", "enabled", mediaService.Enabled())

	var manager *worker.Manager
	if rdb != nil {
		h := worker.NewHandler(notificationService, i18n.Default, m)
		manager = worker.NewManager(queue.NewConsumer(rdb.Client), h, worker.DefaultManagerConfig())
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()
	}

	go purgeExpiredTokens(ctx, authService, logger)

	router := NewRouter(RouterConfig{
		AuthHandler:        handler.NewAuthHandler(userService, authService),
		AppointmentHandler: handler.NewAppointmentHandler(appointmentService, userService),
		PushHandler:        handler.NewPushHandler(notificationService, userService, vapidPublicKey),
		PartnerHandler:     handler.NewPartnerHandler(partnerService),
		MediaHandler:       handler.NewMediaHandler(mediaService),
		FunctionsHandler:   handler.NewFunctionsHandler(chatService, notificationService, partnerService, m),
		Admins:             userService,
		SignInLimiter:      signInLimiter,
		ChatLimiter:        chatLimiter,
		Metrics:            m,
		JWTSecret:          cfg.JWTSecret,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// purgeExpiredTokens drops long-expired refresh tokens until ctx ends.
func purgeExpiredTokens(ctx context.Context, auth *service.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(tokenPurgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpired(ctx, tokenPurgeAfter)
			if err != nil {
				logger.Warn("purge expired tokens failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", "count", n)
			}
		}
	}
}
