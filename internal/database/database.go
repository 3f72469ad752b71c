package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/community"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the backing database.
type Options struct {
	Driver string
	// Path is the SQLite file, or a file: URI for in-memory databases.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

// Open establishes a connection and performs schema migrations.
func Open(options Options, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(options.Driver))
	var dialector gorm.Dialector
	var target string
	switch driver {
	case DriverSQLite, "":
		if strings.TrimSpace(options.Path) == "" {
			return nil, fmt.Errorf("database path is required")
		}
		driver = DriverSQLite
		dialector = sqlite.Open(options.Path)
		target = options.Path
	case DriverPostgres:
		if strings.TrimSpace(options.DSN) == "" {
			return nil, fmt.Errorf("database dsn is required")
		}
		dialector = postgres.Open(options.DSN)
		target = "postgres"
	default:
		return nil, fmt.Errorf("database driver %q is not supported", options.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized", zap.String("driver", driver), zap.String("target", target))
	return db, nil
}

// Migrate creates every table the services use and applies data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(
		&users.Account{},
		&users.Profile{},
		&community.Message{},
		&community.Like{},
		&community.Reply{},
		&challenge.Progress{},
		&challenge.TaskCompletion{},
		&migrationRecord{},
	); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
