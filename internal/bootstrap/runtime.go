// Package bootstrap wires the process-wide runtime shared by the server and CLIs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ServiceName labels traces.
	ServiceName string
	// SkipSchema connects without applying the schema policy (used by cmd/migrate).
	SkipSchema bool
}

// Runtime holds the initialized dependencies and their shutdown hook.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Shutdown flushes traces. It does not close DB or Redis.
	Shutdown func(context.Context) error
}

// InitRuntime configures logging and tracing, connects to DB and Redis and
// bootstraps the development staff account when enabled.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	observability.SetLogger(middleware.Logger)

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "quill-api"
	}
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	if !opts.SkipSchema {
		if err := ensureDevStaff(cfg, db); err != nil {
			return nil, fmt.Errorf("failed to bootstrap development staff user: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), Shutdown: shutdown}, nil
}

// ensureDevStaff creates or re-promotes the configured development staff user.
func ensureDevStaff(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapStaff {
		return nil
	}

	username := strings.TrimSpace(cfg.DevStaffUsername)
	if username == "" {
		username = "editor"
	}
	if cfg.DevStaffPassword == "" {
		return fmt.Errorf("DEV_STAFF_PASSWORD must be set when DEV_BOOTSTRAP_STAFF is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevStaffPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash staff password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		findErr := tx.Where("username = ?", username).First(&user).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			user = models.User{
				Username: username,
				Email:    username + "@quill.local",
				Password: string(hashedPassword),
				IsStaff:  true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			if err := tx.Model(&user).Updates(map[string]any{
				"is_staff": true,
				"password": string(hashedPassword),
			}).Error; err != nil {
				return err
			}
		}

		middleware.Logger.Info("development staff user ensured",
			slog.String("username", username),
			slog.Uint64("id", uint64(user.ID)),
		)
		return nil
	})
}
