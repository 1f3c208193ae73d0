// Package dbtest opens throwaway SQLite databases carrying the wallet schema so
// repository and service tests run without Postgres.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/turfpay-backend/pkg/db"
)

// schema mirrors pkg/migrate/migrations in SQLite syntax.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
  amount NUMERIC NOT NULL CHECK (amount > 0),
  reason TEXT NOT NULL CHECK (reason IN ('ADD_MONEY', 'GAME_JOIN', 'REFUND', 'ADJUSTMENT')),
  game_id TEXT,
  razorpay_payment_id TEXT,
  razorpay_order_id TEXT,
  description TEXT,
  balance_after NUMERIC NOT NULL CHECK (balance_after >= 0),
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_wallet_transactions_razorpay_payment_id
  ON wallet_transactions (razorpay_payment_id) WHERE razorpay_payment_id IS NOT NULL;`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_wallet_transactions_game_join
  ON wallet_transactions (user_id, game_id)
  WHERE type = 'DEBIT' AND reason = 'GAME_JOIN' AND game_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS games (
  id TEXT PRIMARY KEY,
  team_name TEXT NOT NULL,
  team_size INTEGER NOT NULL CHECK (team_size >= 1),
  game_type TEXT NOT NULL,
  turf_location TEXT NOT NULL,
  turf_date_time DATETIME NOT NULL,
  turf_price NUMERIC CHECK (turf_price IS NULL OR turf_price >= 0),
  created_by TEXT NOT NULL,
  captain_id TEXT,
  status TEXT NOT NULL DEFAULT 'upcoming',
  available_spots INTEGER NOT NULL CHECK (available_spots >= 0),
  is_open INTEGER NOT NULL DEFAULT 1,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS game_players (
  game_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  joined_at DATETIME,
  PRIMARY KEY (game_id, user_id)
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a client over a private in-memory database. The pool is pinned to
// one connection, so code inside WithTx must only use the tx handle.
func Open(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return db.NewFromConn(conn)
}
