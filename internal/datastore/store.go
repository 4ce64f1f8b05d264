package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultEventLimit is used when a query passes a non-positive limit.
	DefaultEventLimit = 50

	// timeLayout is fixed width so text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is the durable record of tasks, change events and snapshots. One
// Store is shared by the whole process.
type Store struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "Datastore").Logger()

	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(cfg, logger)
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
		if err == nil && cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	default:
		return nil, common.NewValidationError("driver", cfg.Driver, "unsupported storage driver")
	}
	if err != nil {
		return nil, common.NewPersistenceError("open database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, common.NewPersistenceError("ping database", err)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("driver", driver).Msg("Database initialized and schema verified")
	return s, nil
}

func openSQLite(cfg config.StorageConfig, logger zerolog.Logger) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = config.DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = config.DefaultBusyTimeoutMs
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path, busy)

	logger.Debug().Str("db_path", path).Msg("Opening sqlite database")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// one connection unless configured; sqlite serializes writers anyway
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the active SQL driver name.
func (s *Store) Driver() string {
	return s.driver
}

// InitSchema creates the tables and indexes if they do not already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error().Err(err).Msg("Failed to initialize schema")
			return common.NewPersistenceError("init schema", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
