package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/storefront-gateway/internal/account"
	"github.com/noah-isme/storefront-gateway/internal/admin"
	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/chat"
	"github.com/noah-isme/storefront-gateway/internal/checkout"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/config"
	"github.com/noah-isme/storefront-gateway/internal/health"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/ratelimit"
	"github.com/noah-isme/storefront-gateway/internal/resilience"
	"github.com/noah-isme/storefront-gateway/internal/security"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics("gateway", nil)
	httpMetrics := obs.NewHTTPMetrics("gateway", obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-gateway",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(startCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("commerce-api").
		WithLogger(logger)
	client, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Breaker: breaker,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise upstream client")
	}

	sessionStore := &session.Store{Client: redisClient, TTL: cfg.SessionTTL}
	sessions := session.Middleware{Store: sessionStore}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Source: client,
		Cache:  catalog.NewCache(redisClient, cfg.CacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	cartService, err := cart.NewService(cart.ServiceConfig{
		Upstream:    client,
		ShippingFee: cfg.ShippingFee,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise cart service")
	}
	cartHandler := cart.NewHandler(cartService)

	checkoutService, err := checkout.NewService(checkout.ServiceConfig{
		Upstream:    client,
		ShippingFee: cfg.ShippingFee,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout service")
	}
	checkoutHandler := checkout.NewHandler(checkoutService)

	discovery := chat.NewDiscovery(client, cfg.ChatAdminAttempts, cfg.ChatAdminDelay, logger)
	relay := chat.NewRelay(cfg.UpstreamSocketURL, logger)
	chatService, err := chat.NewService(chat.ServiceConfig{
		Upstream:  client,
		Discovery: discovery,
		Relay:     relay,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise chat service")
	}
	chatHandler := chat.NewHandler(chatService, relay)

	adminHandler, err := admin.NewHandler(admin.HandlerConfig{
		Upstream: client,
		Cache:    catalogService,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise admin handler")
	}

	accountHandler, err := account.NewHandler(account.HandlerConfig{
		Upstream:     client,
		Store:        sessionStore,
		SecureCookie: cfg.CookieSecure,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise account handler")
	}

	healthHandler := health.Handler{Checker: readinessChecker{upstream: client, redis: redisClient}}

	limiterError := func(err error) {
		logger.Warn().Err(err).Msg("rate limiter unavailable")
	}
	authLimiter := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: "ratelimit:auth:"},
		Key:     common.ClientIP,
		Window:  cfg.RateLimitWindow,
		Max:     cfg.RateLimitMax,
		OnError: limiterError,
	}
	chatLimiter := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: "ratelimit:chat:"},
		Key:     common.ClientIP,
		Window:  cfg.RateLimitWindow,
		Max:     cfg.RateLimitMax,
		OnError: limiterError,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{HSTS: cfg.CookieSecure}.Middleware)
	r.Use(security.BodyLimit{MaxBytes: 1 << 20}.Middleware)
	r.Use(security.CSRF{}.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(pub chi.Router) {
			pub.Use(sessions.Resolve)
			pub.Get("/products", catalogHandler.Products)
			pub.Get("/products/{id}", catalogHandler.ProductDetail)
			pub.Get("/categories", catalogHandler.Categories)
			pub.Get("/suppliers", catalogHandler.Suppliers)
			pub.Get("/payment-methods", checkoutHandler.PaymentMethods)
		})

		v.Route("/auth", func(a chi.Router) {
			a.Use(authLimiter.Middleware)
			a.Post("/login", accountHandler.Login)
			a.Post("/register", accountHandler.Register)
			a.Group(func(protected chi.Router) {
				protected.Use(sessions.Require)
				protected.Post("/logout", accountHandler.Logout)
				protected.Get("/me", accountHandler.Me)
			})
		})

		v.Group(func(authR chi.Router) {
			authR.Use(sessions.Require)

			authR.Route("/cart", func(c chi.Router) {
				c.Get("/", cartHandler.ViewCart)
				c.Post("/items", cartHandler.Add)
				c.Patch("/items/{id}", cartHandler.Update)
				c.Delete("/items/{id}", cartHandler.Remove)
				c.Delete("/", cartHandler.Clear)
			})

			authR.Route("/checkout", func(c chi.Router) {
				c.Get("/promotions", checkoutHandler.Promotions)
				c.Post("/promotions/apply", checkoutHandler.ApplyCode)
				c.Get("/quote", checkoutHandler.Quote)
				c.Post("/", checkoutHandler.PlaceOrder)
			})

			authR.Get("/orders", checkoutHandler.Orders)
			authR.Get("/orders/{id}", checkoutHandler.OrderDetail)
			authR.Patch("/orders/{id}/deliver", checkoutHandler.ConfirmDelivery)
			authR.Get("/feedbacks", checkoutHandler.Feedbacks)
			authR.Post("/feedbacks", checkoutHandler.SubmitFeedback)

			authR.Route("/chat", func(c chi.Router) {
				c.Get("/messages", chatHandler.History)
				c.With(chatLimiter.Middleware).Post("/messages", chatHandler.Send)
				c.Get("/stream", chatHandler.Stream)
			})
		})

		v.Route("/admin", func(a chi.Router) {
			a.Use(sessions.RequireAdmin)
			a.Post("/products", adminHandler.CreateProduct)
			a.Put("/products/{id}", adminHandler.UpdateProduct)
			a.Delete("/products/{id}", adminHandler.DeleteProduct)
			a.Post("/categories", adminHandler.CreateCategory)
			a.Put("/categories/{id}", adminHandler.UpdateCategory)
			a.Delete("/categories/{id}", adminHandler.DeleteCategory)
			a.Post("/suppliers", adminHandler.CreateSupplier)
			a.Put("/suppliers/{id}", adminHandler.UpdateSupplier)
			a.Delete("/suppliers/{id}", adminHandler.DeleteSupplier)
			a.Get("/promotions", adminHandler.Promotions)
			a.Get("/promotions/{id}", adminHandler.PromotionDetail)
			a.Post("/promotions", adminHandler.CreatePromotion)
			a.Put("/promotions/{id}", adminHandler.UpdatePromotion)
			a.Delete("/promotions/{id}", adminHandler.DeletePromotion)
			a.Patch("/promotions/{id}/toggle", adminHandler.TogglePromotion)
			a.Get("/users", adminHandler.Users)
			a.Get("/users/{id}", adminHandler.UserDetail)
			a.Post("/users", adminHandler.CreateUser)
			a.Put("/users/{id}", adminHandler.UpdateUser)
			a.Delete("/users/{id}", adminHandler.DeleteUser)
			a.Patch("/orders/{id}/confirm", adminHandler.ConfirmOrder)
			a.Get("/notifications", adminHandler.Notifications)
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go relay.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	upstream *upstream.Client
	redis    *redis.Client
}

func (c readinessChecker) PingUpstream(ctx context.Context, timeout time.Duration) error {
	if c.upstream == nil {
		return errors.New("upstream not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.upstream.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
