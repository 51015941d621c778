package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"modernc.org/sqlite"
)

func init() {
	// SQLite LOWER and LIKE only fold ASCII; casefold lowers Czech diacritics too
	sqlite.MustRegisterDeterministicScalarFunction("casefold", 1, casefold)
}

func casefold(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// ErrUnsupportedDriver is returned by Open for drivers other than postgres and sqlite
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to the listing store. driver is "postgres" (lib/pq) or "sqlite" (modernc).
func Open(driver, dsn string, maxConn, maxIdleConn int) (*sqlx.DB, error) {
	switch driver {
	case "postgres":
	case "sqlite":
		// every in-memory connection is its own database
		if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
			maxConn, maxIdleConn = 1, 1
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	if driver == "postgres" {
		db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
		db.SetConnMaxIdleTime(2 * time.Minute)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// withConn runs fn on a dedicated connection and always hands it back to the pool
func withConn(ctx context.Context, db *sqlx.DB, fn func(conn *sqlx.Conn) error) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}
