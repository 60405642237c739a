package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-token-exchange/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-token-exchange/internal/auth"
	"github.com/franciscosanchezn/gin-token-exchange/internal/cache"
	"github.com/franciscosanchezn/gin-token-exchange/internal/config"
	"github.com/franciscosanchezn/gin-token-exchange/internal/controllers"
	"github.com/franciscosanchezn/gin-token-exchange/internal/database"
	"github.com/franciscosanchezn/gin-token-exchange/internal/invalidation"
	"github.com/franciscosanchezn/gin-token-exchange/internal/middleware"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the token exchange server",
	RunE:  runServe,
}

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	cache     *cache.TieredCache
	store     services.CredentialStore
	tokens    *services.TokenService
	publisher invalidation.Publisher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	db, err := database.InitDatabase(ctx, database.NewDatabaseConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db, store: services.NewCredentialStore(db)}
	a.redis = connectRedis(ctx, cfg)

	a.cache = cache.NewTieredCache(cache.Options{
		Prefix:        cfg.CachePrefix,
		MemoryEnabled: cfg.MemoryCacheEnabled,
		MemorySize:    cfg.MemoryCacheSize,
		MemoryTTL:     cfg.MemoryCacheTTL,
		SharedEnabled: a.redis != nil,
		DefaultTTL:    cfg.SharedCacheTTL,
	}, a.redis)

	a.tokens = services.NewTokenService(a.store, a.cache, services.TokenServiceConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		CacheTTL:        cfg.SharedCacheTTL,
		DefaultScope:    cfg.DefaultScope,
	}, services.WithGenerator(services.NewMockGoogleTokenGenerate(cfg.TokenAudience)))

	if a.redis != nil {
		a.publisher = invalidation.NewRedisPublisher(a.redis, cfg.InvalidationChannel, cfg.InvalidationPayload, log.StandardLogger())
	} else {
		a.publisher = invalidation.NoopPublisher{Log: log.StandardLogger()}
	}
	return a, nil
}

// connectRedis returns nil when the shared store is disabled or unreachable.
// The exchange keeps serving from layer 1 and the credential store without it.
func connectRedis(ctx context.Context, cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		log.Info("Redis disabled, running without shared cache and invalidation")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("redis_addr", cfg.RedisAddr).Warn("Redis unreachable, degrading to in-process cache")
		_ = client.Close()
		return nil
	}
	log.WithField("redis_addr", cfg.RedisAddr).Info("Connected to Redis")
	return client
}

func (a *app) Close() {
	if p, ok := a.publisher.(*invalidation.RedisPublisher); ok {
		p.Close()
	}
	a.tokens.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	oauth := auth.NewOAuthService(a.tokens, a.store, auth.NewGormCodeStore(a.db), services.NewRateLimiter(nil))
	admin := controllers.NewAdminController(a.tokens, a.store, a.cache, a.publisher, log.StandardLogger())

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(oauth, admin, []byte(a.cfg.JWTSecret))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.tokens.RunSweeper(gctx, a.cfg.TokenSweepInterval)
		return nil
	})
	if memory := a.cache.Memory(); memory != nil {
		g.Go(func() error {
			memory.Run(gctx, a.cfg.CacheCleanupInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupRouter initializes the Gin router and sets up the routes
func setupRouter(oauth *auth.OAuthService, admin *controllers.AdminController, jwtSecret []byte) *gin.Engine {
	router := gin.Default()

	router.GET("/health", healthCheckHandler)
	oauth.RegisterRoutes(router)

	adminAPI := router.Group("/admin")
	adminAPI.Use(middleware.AdminAuth(jwtSecret))
	{
		read := adminAPI.Group("", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleViewer))
		write := adminAPI.Group("", middleware.RequireRole(middleware.RoleAdmin))
		admin.RegisterRoutes(read, write)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return router
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-token-exchange",
	})
}
