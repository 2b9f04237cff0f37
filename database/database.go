package database

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yatube/domain"
)

// Supported database dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config describes how to reach the database. Only the fields of the chosen dialect are used.
type Config struct {
	Dialect  string `json:"dialect"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	// Path is the sqlite database file, or a file: uri.
	Path string `json:"path"`
}

// DefaultConfig is a local postgres database for development.
func DefaultConfig() Config {
	return Config{
		Dialect: DialectPostgres,
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		Name:    "yatube",
		Path:    "yatube.db",
	}
}

// ConnectionInfo returns the dsn for the configured dialect.
func (c Config) ConnectionInfo() string {
	if c.Dialect == DialectSQLite {
		return c.Path
	}
	if c.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.Name)
}

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Dialect of the connection, see Config.Dialect.
	Dialect string
}

// Open opens a new database connection. It also configures logging
// based on whether we're in development or in production.
func Open(c Config, isProd bool) (*DB, error) {
	dsn := c.ConnectionInfo()
	if dsn == "" {
		return nil, errors.New("connection info required")
	}
	level := logger.Info
	if isProd {
		level = logger.Silent
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var dialector gorm.Dialector
	switch c.Dialect {
	case DialectPostgres, "":
		dialector = postgres.Open(dsn)
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unknown database dialect %q", c.Dialect)
	}

	g, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "opening gorm %s connection", c.Dialect)
	}
	if c.Dialect == DialectSQLite {
		// sqlite serializes writers, a single connection avoids "database is locked".
		sqlDB, err := g.DB()
		if err != nil {
			return nil, errors.Wrap(err, "getting sql.DB")
		}
		sqlDB.SetMaxOpenConns(1)
		if err := g.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, errors.Wrap(err, "enabling foreign keys")
		}
	}
	return &DB{Gorm: g, Dialect: c.Dialect}, nil
}

// models lists every table in dependency order.
var models = []interface{}{
	&domain.User{},
	&domain.Group{},
	&domain.Post{},
	&domain.Comment{},
	&domain.Follow{},
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return errors.Wrap(db.Gorm.AutoMigrate(models...), "migrating")
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	reversed := make([]interface{}, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		reversed = append(reversed, models[i])
	}
	if err := db.Gorm.Migrator().DropTable(reversed...); err != nil {
		return errors.Wrap(err, "dropping tables")
	}
	return AutoMigrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
