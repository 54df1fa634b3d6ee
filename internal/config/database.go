package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// ErrConnection marks failures to reach the backing store.
var ErrConnection = errors.New("database connection failed")

// DatabaseConfig describes how to reach the route database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, mysql or sqlite
	// PGDriver picks the database/sql driver behind postgres: "pgx" or "postgres" (lib/pq).
	PGDriver string `yaml:"pg_driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	TimeZone string `yaml:"timezone"`
	Path     string `yaml:"path"` // sqlite file

	// Pooled shares one handle across requests instead of dialing per request.
	Pooled      bool `yaml:"pooled"`
	AutoMigrate bool `yaml:"auto_migrate"`
}

// String describes the target without revealing the password.
func (c DatabaseConfig) String() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("driver=sqlite path=%s", c.Path)
	}
	pw := "[EMPTY]"
	if c.Password != "" {
		pw = "[SET]"
	}
	return fmt.Sprintf("driver=%s host=%s port=%s user=%s dbname=%s password=%s",
		c.Driver, c.Host, c.Port, c.User, c.Name, pw)
}

// WithName returns a copy pointing at another database on the same server.
func (c DatabaseConfig) WithName(name string) DatabaseConfig {
	c.Name = name
	return c
}

// DSN builds the driver-specific data source name.
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case DriverMySQL:
		mc := gomysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, c.Port)
		mc.DBName = c.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	case DriverSQLite:
		return c.Path
	default:
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
		)
	}
}

func (c DatabaseConfig) dialector() gorm.Dialector {
	switch c.Driver {
	case DriverMySQL:
		return mysql.Open(c.DSN())
	case DriverSQLite:
		return sqlite.Open(c.DSN())
	default:
		if c.PGDriver == "postgres" {
			return postgres.New(postgres.Config{DriverName: "postgres", DSN: c.DSN()})
		}
		return postgres.Open(c.DSN())
	}
}

// Open connects to the configured database. gorm pings on open, so a nil
// error means the server answered.
func Open(c DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{}
	}
	gormCfg.TranslateError = true

	db, err := gorm.Open(c.dialector(), gormCfg)
	if err != nil {
		if db != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return db, nil
}

// Conn is a database handle acquired for the lifetime of one request.
type Conn struct {
	DB      *gorm.DB
	release func() error
}

// Release returns the handle. Safe to call more than once.
func (c *Conn) Release() {
	if c == nil || c.release == nil {
		return
	}
	if err := c.release(); err != nil {
		logrus.WithError(err).Warn("Conn.Release: closing database handle failed")
	}
	c.release = nil
}

// Connector hands out database handles. Handlers depend on this and nothing
// else from the database layer's bootstrap.
type Connector interface {
	Acquire(ctx context.Context) (*Conn, error)
}

// NewConnector returns a per-request dialing connector, or a shared one when
// cfg.Pooled is set.
func NewConnector(cfg DatabaseConfig, gormCfg *gorm.Config) (Connector, error) {
	if !cfg.Pooled {
		return &dialConnector{cfg: cfg, gormCfg: gormCfg}, nil
	}
	db, err := Open(cfg, gormCfg)
	if err != nil {
		return nil, err
	}
	return NewSharedConnector(db), nil
}

// dialConnector opens a single-connection handle per Acquire and closes it on Release.
type dialConnector struct {
	cfg     DatabaseConfig
	gormCfg *gorm.Config
}

func (d *dialConnector) Acquire(ctx context.Context) (*Conn, error) {
	var gormCfg gorm.Config
	if d.gormCfg != nil {
		gormCfg = *d.gormCfg
	}
	db, err := Open(d.cfg, &gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Conn{DB: db.WithContext(ctx), release: sqlDB.Close}, nil
}

type sharedConnector struct {
	db *gorm.DB
}

// NewSharedConnector wraps an already open handle. Release is a no-op.
func NewSharedConnector(db *gorm.DB) Connector {
	return &sharedConnector{db: db}
}

func (s *sharedConnector) Acquire(ctx context.Context) (*Conn, error) {
	if s.db == nil {
		return nil, ErrConnection
	}
	return &Conn{DB: s.db.WithContext(ctx)}, nil
}
