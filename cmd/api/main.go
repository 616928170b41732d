package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-auth-nosql/internal/application/account"
	"github.com/go-auth-nosql/internal/application/verification"
	"github.com/go-auth-nosql/internal/config"
	"github.com/go-auth-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/go-auth-nosql/internal/infrastructure/memory"
	"github.com/go-auth-nosql/internal/infrastructure/smtp"
	"github.com/go-auth-nosql/internal/infrastructure/sns"
	"github.com/go-auth-nosql/internal/pkg/codehash"
	"github.com/go-auth-nosql/internal/pkg/password"
	transporthttp "github.com/go-auth-nosql/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store  account.Store
		events account.Publisher
	)
	switch cfg.StoreDriver {
	case "memory":
		slog.Warn("using in-memory account store; data is lost on restart")
		store = memory.NewAccountRepo()
	default:
		awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}
		dynamoClient := dynamo.NewClient(awsCfg, cfg)
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
		store = dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountEmails)

		if cfg.SNSTopicARN != "" {
			events = sns.NewFromConfig(awsCfg, cfg.SNSRegion, cfg.SNSTopicARN)
		}
	}

	codes, err := codehash.NewHasher(cfg.Secrets.CodeHMAC)
	if err != nil {
		return err
	}
	tokens, err := jwtinfra.NewProvider(cfg.Secrets.TokenSigning)
	if err != nil {
		return err
	}

	codeMgr := verification.NewManager(verification.ManagerDeps{
		Store:  store,
		Mailer: smtp.NewMailer(cfg),
		Codes:  codes,
	})
	accounts := account.NewService(account.ServiceDeps{
		Store:  store,
		Hasher: password.NewHasher(),
		Tokens: tokens,
		Codes:  codeMgr,
		Events: events,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{Accounts: accounts, Tokens: tokens})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.AppEnv == "production" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
