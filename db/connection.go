package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"school-payment-service/config"
	"school-payment-service/logger"

	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool, pings it and makes sure the schema exists.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return Open(ctx, cfg.DSN())
}

// Open is Connect for callers that already hold a DSN (tests, CLI).
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := CreateTables(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return conn, nil
}

// CreateTables is idempotent.
func CreateTables(ctx context.Context, conn *sql.DB) error {
	ordersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		school_id TEXT NOT NULL,
		trustee_id TEXT NOT NULL DEFAULT '',
		student_name TEXT NOT NULL DEFAULT '',
		student_id TEXT NOT NULL DEFAULT '',
		student_email TEXT NOT NULL DEFAULT '',
		gateway_name TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		custom_order_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	orderStatusTable := `
	CREATE TABLE IF NOT EXISTS order_status (
		id UUID PRIMARY KEY,
		collect_id UUID NOT NULL UNIQUE,
		order_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		transaction_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		payment_mode TEXT NOT NULL DEFAULT '',
		payment_details TEXT NOT NULL DEFAULT '',
		bank_reference TEXT NOT NULL DEFAULT '',
		payment_message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		payment_time TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

		CONSTRAINT fk_order
			FOREIGN KEY (collect_id)
			REFERENCES orders(id)
			ON DELETE CASCADE
	);`

	webhookLogsTable := `
	CREATE TABLE IF NOT EXISTS webhook_logs (
		id UUID PRIMARY KEY,
		event_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		payload JSON NOT NULL
	);`

	// jsonb cannot hold \u0000; earlier schemas used it.
	webhookPayloadType := `
	DO $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'webhook_logs' AND column_name = 'payload' AND data_type = 'jsonb'
		) THEN
			ALTER TABLE webhook_logs ALTER COLUMN payload TYPE JSON USING payload::text::json;
		END IF;
	END $$;`

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_custom_order_id ON orders(custom_order_id) WHERE custom_order_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_school_id ON orders(school_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_logs_event_time ON webhook_logs(event_time DESC)`,
	}

	// orders must exist before order_status references it
	for _, stmt := range []struct{ name, sql string }{
		{"orders", ordersTable},
		{"order_status", orderStatusTable},
		{"webhook_logs", webhookLogsTable},
		{"webhook_logs payload", webhookPayloadType},
	} {
		if _, err := conn.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("error creating %s table: %w", stmt.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("error creating index: %w", err)
		}
	}

	logger.Debug("database schema ready")
	return nil
}
