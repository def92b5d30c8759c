// Command authd serves the auth API: login, token refresh, logout, and
// password reset over HTTP, with Redis for session state and Postgres for
// credentials and the audit trail.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/careerpilot/authcore"
	"github.com/careerpilot/authcore/httpapi"
	"github.com/careerpilot/authcore/pgstore"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("authd: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("authd: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("authd exited", zap.Error(err))
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *serverConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return errors.New("redis ping failed: " + err.Error())
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return errors.New("postgres pool: " + err.Error())
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return errors.New("postgres ping failed: " + err.Error())
	}

	engine, err := authcore.New().
		WithRedis(redisClient).
		WithCredentialStore(pgstore.NewCredentialStore(pool)).
		WithAuditSink(pgstore.NewAuditSink(pool, logger, 5*time.Second)).
		// Stand-in until a mailer exists: exposes issued reset tokens to the
		// operator log so the flow is usable from day one.
		WithResetDelivery(authcore.ResetDeliveryFunc(func(_ context.Context, email, token string) error {
			logger.Info("password reset token issued",
				zap.String("email", email), zap.String("token", token))
			return nil
		})).
		WithLogger(logger).
		WithConfig(authcore.Config{
			JWT: authcore.JWTConfig{
				Secret:     []byte(cfg.JWTSecret),
				AccessTTL:  cfg.AccessTTL,
				RefreshTTL: cfg.RefreshTTL,
				Issuer:     cfg.JWTIssuer,
			},
			Guard: authcore.GuardConfig{
				AttemptLimit:    cfg.AttemptLimit,
				LockoutDuration: cfg.LockoutDuration,
				FailClosed:      cfg.GuardFailClosed,
			},
			PasswordReset: authcore.PasswordResetConfig{
				TokenTTL:     cfg.ResetTokenTTL,
				RequestLimit: cfg.ResetRequestLimit,
			},
		}).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.NewServer(engine, logger).Register(router)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if dropped := engine.AuditDropped(); dropped > 0 {
		logger.Warn("audit events dropped during lifetime", zap.Uint64("count", dropped))
	}
	return nil
}
