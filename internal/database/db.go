package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the idempotent DDL run at startup. The UNIQUE index on
// api_keys.api_key is what makes token generation collision-safe: inserts of
// an existing token fail with a duplicate-key error and the caller redraws.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL,
		api_key CHAR(64) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		deactivated_at DATETIME NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_api_keys_api_key (api_key),
		KEY idx_api_keys_email_active (email, active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS api_usage (
		api_key CHAR(64) NOT NULL,
		day CHAR(10) NOT NULL,
		` + "`count`" + ` INT UNSIGNED NOT NULL DEFAULT 0,
		endpoints JSON NOT NULL,
		first_access DATETIME NOT NULL,
		last_access DATETIME NOT NULL,
		PRIMARY KEY (api_key, day)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the gateway tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
