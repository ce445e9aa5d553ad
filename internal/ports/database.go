package ports

import (
	"context"
	"database/sql"
)

// Database represents a database connection
type Database interface {
	// Execute runs a query that doesn't return rows
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Select runs a query and scans all rows into dest
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get runs a query and scans a single row into dest
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Transaction executes a function within a transaction
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	// Ping verifies the connection
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error
}

// Transaction represents a database transaction. Commit and rollback are
// driven by the Database.Transaction wrapper, not by callers.
type Transaction interface {
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
