package database

import (
	"context"
	"database/sql"
	"fmt"
)

// openSQLite はSQLiteデータベース接続を開き、スキーマを適用する。
// dsnの例: "./data/taskman.db", ":memory:"
func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// :memory: は接続ごとに別DBになるため、接続を1本に固定する
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	if err := EnsureSQLiteSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSQLiteSchema はSQLiteのテーブルとインデックスを作成する。
// 何度実行しても同じ結果になる。
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

// sqliteSchema はmigrations/配下のPostgreSQLマイグレーションと等価な定義。
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    date_of_birth TEXT NOT NULL,
    user_role     TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email);

CREATE TABLE IF NOT EXISTS tasks (
    id                TEXT PRIMARY KEY,
    task              TEXT NOT NULL,
    owner             TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT '',
    timeline          DATETIME,
    duration          REAL NOT NULL DEFAULT 0,
    dependent_on      TEXT NOT NULL DEFAULT '[]',
    planned_effort    REAL NOT NULL DEFAULT 0,
    effort_spent      REAL NOT NULL DEFAULT 0,
    completion_date   DATETIME,
    completion_status TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at);
`
