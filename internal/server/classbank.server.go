package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ReadWriteReboot/ClassroomBank/internal/config"
	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	hrest "github.com/ReadWriteReboot/ClassroomBank/internal/handler/rest"
	"github.com/ReadWriteReboot/ClassroomBank/internal/middleware"
	publisher "github.com/ReadWriteReboot/ClassroomBank/internal/pub"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/internal/router"
	"github.com/ReadWriteReboot/ClassroomBank/internal/usecase"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/id"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/jwtutil"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// Run wires the whole service together and serves HTTP until SIGINT or
// SIGTERM. It owns every external resource and closes them on the way out.
func Run(cfg config.AppConfig) error {
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("🚀 Starting ClassBank service",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("env", cfg.Env),
		zap.Int64("machine_id", cfg.MachineID),
	)

	// --- Postgres ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.Migrate(ctx, dbpool); err != nil {
		cancel()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	cancel()
	logger.Info("✅ Database connected and migrated",
		zap.Int32("max_conns", dbpool.Config().MaxConns),
	)

	// --- Redis (sessions, stats cache, rate limits, ledger events) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️ Redis ping failed, sessions will not work until it recovers", zap.Error(err))
	} else {
		logger.Info("✅ Redis connected", zap.String("addr", cfg.RedisAddr))
	}
	pingCancel()

	// --- Kafka audit writer (optional) ---
	var kafkaWriter *kafka.Writer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			MaxAttempts:  3,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			Compression:  kafka.Snappy,
		}
		defer kafkaWriter.Close()
		logger.Info("✅ Kafka audit writer initialized",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	} else {
		logger.Info("Kafka brokers not configured, audit stream disabled")
	}

	// --- ID generators ---
	sf, err := id.NewSnowflake(cfg.MachineID)
	if err != nil {
		return fmt.Errorf("failed to init snowflake: %w", err)
	}
	sids := id.NewSessionIDs()

	// --- Repositories ---
	userRepo := repository.NewUserRepo(dbpool)
	accountRepo := repository.NewAccountRepo(dbpool)
	entryRepo := repository.NewTransactionRepo(dbpool)
	withdrawalRepo := repository.NewWithdrawalRepo(dbpool)
	quickActionRepo := repository.NewQuickActionRepo(dbpool)
	statsRepo := repository.NewStatsRepo(dbpool)
	sessionRepo := repository.NewSessionRepo(rdb)

	// --- Events, usecases ---
	events := publisher.NewLedgerEventPublisher(rdb, kafkaWriter)
	statsUC := usecase.NewStatsUsecase(statsRepo, rdb, logger)
	ledgerUC := usecase.NewLedgerUsecase(dbpool, accountRepo, entryRepo, sf, events, statsUC, logger)
	accountUC := usecase.NewAccountUsecase(dbpool, userRepo, accountRepo, ledgerUC, events, statsUC, logger)
	withdrawalUC := usecase.NewWithdrawalUsecase(dbpool, withdrawalRepo, accountRepo, ledgerUC, events, statsUC, logger)
	quickUC := usecase.NewQuickActionUsecase(quickActionRepo, ledgerUC, logger)

	jwtMgr := jwtutil.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	authUC := usecase.NewAuthUsecase(userRepo, sessionRepo, jwtMgr, sids, cfg.SessionTTL, logger)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := seedTeacher(seedCtx, dbpool, userRepo, cfg, logger); err != nil {
		logger.Warn("⚠️ Failed to seed teacher account", zap.Error(err))
	}
	seedCancel()

	// --- HTTP surface ---
	restHandler := hrest.NewClassbankRestHandler(authUC, accountUC, ledgerUC, withdrawalUC, quickUC, statsUC, logger)
	authMW := middleware.NewAuthMiddleware(jwtMgr, sessionRepo, logger)

	r := chi.NewRouter()
	router.SetupRoutes(r, restHandler, authMW, rdb)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌍 ClassBank REST server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-quit:
		logger.Info("🛑 Shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// seedTeacher creates the teacher account from the configured credentials on
// first boot. Idempotent: an existing username means nothing to do.
func seedTeacher(ctx context.Context, db *pgxpool.Pool, users repository.UserRepository, cfg config.AppConfig, logger *zap.Logger) error {
	if cfg.SeedTeacherUsername == "" || cfg.SeedTeacherPassword == "" {
		logger.Info("teacher seed credentials not set, skipping seeding")
		return nil
	}

	existing, err := users.GetByUsername(ctx, cfg.SeedTeacherUsername)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return err
	}
	if existing != nil {
		logger.Info("teacher account already exists, skipping seeding",
			zap.String("username", existing.Username),
		)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedTeacherPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := users.Create(ctx, tx, &domain.User{
		Username:     cfg.SeedTeacherUsername,
		FullName:     cfg.SeedTeacherName,
		PasswordHash: string(hash),
		Role:         domain.RoleTeacher,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("✅ Seeded teacher account",
		zap.String("username", user.Username),
		zap.Int64("user_id", user.ID),
	)
	return nil
}
