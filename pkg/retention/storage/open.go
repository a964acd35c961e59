package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3" (cgo)
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	_ "modernc.org/sqlite" // SQLite driver "sqlite" (pure Go)

	"jobboard-hq/custodian/pkg/retention"
)

// Backend names.
const (
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendSQLitePure = "sqlite-pure"
	BackendPostgres   = "postgres"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of memory, sqlite, sqlite-pure, postgres.
	Backend string

	SQLite   SQLiteConfig
	Postgres PostgresConfig

	// Migrate applies the schema when the store is opened.
	Migrate bool
}

// SQLiteConfig contains configuration for the SQLite backends.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// PostgresConfig contains configuration for the PostgreSQL backend.
type PostgresConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         "data/custodian.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// Open opens the configured backend.
func Open(ctx context.Context, cfg *Config) (SeedableStore, error) {
	logger := slog.Default().With("component", "retention.storage")

	switch cfg.Backend {
	case BackendMemory, "":
		logger.Warn("using in-memory storage, data is lost on restart")
		return NewMemoryStore(), nil
	case BackendSQLite, BackendSQLitePure, BackendPostgres:
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	driver, dsn, dialect, attrs := connectionParams(cfg)

	db, err := otelsql.Open(driver, dsn, otelsql.WithAttributes(attrs...))
	if err != nil {
		return nil, retention.NewStorageError(cfg.Backend, "open", err)
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(attrs...)); err != nil {
		logger.Warn("failed to register database stats metrics", "error", err)
	}

	switch dialect {
	case DialectPostgres:
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	default:
		maxOpen := cfg.SQLite.MaxOpenConns
		if cfg.SQLite.Path == ":memory:" {
			// every connection to :memory: is a separate database
			maxOpen = 1
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(cfg.SQLite.MaxIdleConns)
	}

	// sqlx only uses the name to pick a bind type; squirrel handles placeholders.
	sqlxName := "sqlite3"
	if dialect == DialectPostgres {
		sqlxName = "pgx"
	}
	store := NewSQLStore(sqlx.NewDb(db, sqlxName), cfg.Backend, dialect)

	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("storage opened",
		"backend", cfg.Backend,
		"driver", driver,
		"migrate", cfg.Migrate,
	)
	return store, nil
}

func connectionParams(cfg *Config) (driver, dsn string, dialect Dialect, attrs []attribute.KeyValue) {
	switch cfg.Backend {
	case BackendPostgres:
		pg := cfg.Postgres
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(pg.User, pg.Password),
			Host:   pg.Host + ":" + strconv.Itoa(pg.Port),
			Path:   "/" + pg.Database,
		}
		q := url.Values{}
		if pg.SSLMode != "" {
			q.Set("sslmode", pg.SSLMode)
		}
		u.RawQuery = q.Encode()
		return "pgx", u.String(), DialectPostgres, []attribute.KeyValue{
			semconv.DBSystemPostgreSQL,
			semconv.DBName(pg.Database),
		}

	case BackendSQLitePure:
		q := url.Values{}
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.SQLite.BusyTimeout.Milliseconds()))
		if cfg.SQLite.WALMode {
			q.Add("_pragma", "journal_mode(WAL)")
		}
		q.Set("_time_format", "sqlite")
		return "sqlite", "file:" + cfg.SQLite.Path + "?" + q.Encode(), DialectSQLite, []attribute.KeyValue{
			semconv.DBSystemSqlite,
			semconv.DBName(cfg.SQLite.Path),
		}

	default:
		q := url.Values{}
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", strconv.FormatInt(cfg.SQLite.BusyTimeout.Milliseconds(), 10))
		if cfg.SQLite.WALMode {
			q.Set("_journal_mode", "WAL")
		}
		return "sqlite3", "file:" + cfg.SQLite.Path + "?" + q.Encode(), DialectSQLite, []attribute.KeyValue{
			semconv.DBSystemSqlite,
			semconv.DBName(cfg.SQLite.Path),
		}
	}
}
