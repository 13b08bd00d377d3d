package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/companion-backend/internal/platform/envutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func PostgresConfigFromEnv() PostgresConfig {
	return PostgresConfig{
		Host:            envutil.String("POSTGRES_HOST", "localhost"),
		Port:            envutil.String("POSTGRES_PORT", "5432"),
		User:            envutil.String("POSTGRES_USER", "postgres"),
		Password:        envutil.String("POSTGRES_PASSWORD", ""),
		Name:            envutil.String("POSTGRES_NAME", "companion"),
		SSLMode:         envutil.String("POSTGRES_SSLMODE", "disable"),
		MaxOpenConns:    envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

// DSN escapes credentials, so passwords may contain URL metacharacters.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	return OpenPostgres(logg, PostgresConfigFromEnv())
}

func OpenPostgres(logg *logger.Logger, cfg PostgresConfig) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")
	serviceLog.Debug("Postgres target", "host", cfg.Host, "port", cfg.Port, "db", cfg.Name)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// turn_embedding needs pgvector.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable vector extension: %w", err)
	}
	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) PingContext(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
