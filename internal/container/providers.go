package container

import (
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/application/service"
	"github.com/garyjia/po-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/po-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/po-approval/internal/infrastructure/security"
	httpapi "github.com/garyjia/po-approval/internal/interfaces/http"
	"github.com/garyjia/po-approval/pkg/database"
	"github.com/garyjia/po-approval/pkg/utils"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	DB        *database.DB
	TxManager *sqlite.DB
}

// SecurityBundle holds password hashing and token signing
type SecurityBundle struct {
	Hasher *security.Hasher
	Tokens *security.TokenProvider
}

// ProvideDatabase opens the database and applies pending migrations
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:        db,
		TxManager: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Order: repository.NewOrderRepository(sqlDB, logger),
		Entry: repository.NewApprovalEntryRepository(sqlDB, logger),
		User:  repository.NewUserRepository(sqlDB, logger),
	}, nil
}

// ProvideSecurity creates the password hasher and token provider
func ProvideSecurity(cfg *AuthConfig) (*SecurityBundle, error) {
	tokens, err := security.NewTokenProvider(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token provider: %w", err)
	}
	return &SecurityBundle{
		Hasher: security.NewHasher(cfg.BcryptCost),
		Tokens: tokens,
	}, nil
}

// ProvideServices creates the application services
func ProvideServices(repos *RepositoryBundle, tx port.TransactionManager, sec *SecurityBundle, logger *zap.Logger) *ServiceBundle {
	serviceLogger := utils.NewKVLogger(logger)

	return &ServiceBundle{
		Orders:    service.NewOrderService(repos.Order, repos.Entry, serviceLogger),
		Approvals: service.NewApprovalService(repos.Order, repos.Entry, tx, serviceLogger),
		Auth:      service.NewAuthService(repos.User, sec.Hasher, sec.Tokens, sec.Tokens, serviceLogger),
	}
}

// ProvideServer creates the HTTP server. Its metrics go to a fresh registry.
func ProvideServer(cfg *ServerConfig, services *ServiceBundle, db *sql.DB, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(httpapi.ServerConfig{
		Host:               cfg.Host,
		Port:               cfg.Port,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		LoginRatePerSecond: cfg.LoginRatePerSecond,
		LoginBurst:         cfg.LoginBurst,
	}, httpapi.Services{
		Orders:    services.Orders,
		Approvals: services.Approvals,
		Auth:      services.Auth,
		Ping:      db.PingContext,
	}, prometheus.NewRegistry(), utils.NewKVLogger(logger))
}
