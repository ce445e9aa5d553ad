// Package database provides the PostgreSQL adapter behind ports.Database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// DB implements the Database interface for PostgreSQL
type DB struct {
	conn    *sqlx.DB
	cfg     *config.DatabaseConfig
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates a new PostgreSQL database connection
func New(cfg *config.DatabaseConfig, logger ports.Logger, metrics ports.Metrics) (ports.Database, error) {
	logger.Info("Connecting to PostgreSQL database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database)

	conn, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL database")
	metrics.IncrementCounter("database.connection.success", map[string]string{"type": "postgres"})

	return &DB{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Execute runs a query that doesn't return rows
func (d *DB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	startTime := time.Now()

	result, err := d.conn.ExecContext(ctx, query, args...)

	d.recordMetrics("execute", time.Since(startTime), err)

	if err != nil {
		d.logger.Error("Failed to execute query", "error", err)
		return nil, err
	}

	return result, nil
}

// Select runs a query and scans all rows into dest
func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	startTime := time.Now()

	err := d.conn.SelectContext(ctx, dest, query, args...)

	d.recordMetrics("select", time.Since(startTime), err)

	if err != nil {
		d.logger.Error("Failed to select", "error", err)
	}
	return err
}

// Get runs a query and scans a single row into dest
func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	startTime := time.Now()

	err := d.conn.GetContext(ctx, dest, query, args...)

	d.recordMetrics("get", time.Since(startTime), err)
	return err
}

// Transaction executes a function within a transaction
func (d *DB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) error {
	startTime := time.Now()

	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		d.logger.Error("Failed to begin transaction", "error", err)
		return err
	}

	ptx := &pgTx{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ptx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		d.logger.Error("Failed to commit", "error", err)
		return err
	}

	d.recordMetrics("transaction", time.Since(startTime), nil)
	return nil
}

// Ping verifies the connection
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the database connection
func (d *DB) Close() error {
	d.logger.Info("Closing database connection")
	return d.conn.Close()
}

// recordMetrics records operation metrics
func (d *DB) recordMetrics(operation string, duration time.Duration, err error) {
	d.metrics.RecordHistogram(
		fmt.Sprintf("database.%s.duration_ms", operation),
		float64(duration.Milliseconds()),
		nil,
	)

	if err != nil && err != sql.ErrNoRows {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.errors", operation), nil)
	} else {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.success", operation), nil)
	}
}

// pgTx implements the Transaction interface
type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *pgTx) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(ctx, dest, query, args...)
}
