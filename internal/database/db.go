package database

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver は接続文字列のスキームから決まるストアの種類。
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverMongo    Driver = "mongodb"
)

const sqliteScheme = "sqlite://"

// DriverFromURL は接続文字列のスキームからDriverを判定する。
func DriverFromURL(databaseURL string) (Driver, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return DriverMongo, nil
	case strings.HasPrefix(databaseURL, sqliteScheme):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme")
	}
}

// Open はSQLデータベース接続を開く。
// PostgreSQL（postgres://, postgresql://）とSQLite（sqlite://<path>, sqlite://:memory:）に対応する。
// PostgreSQLの場合sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, Dialect, error) {
	driver, err := DriverFromURL(databaseURL)
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case DriverPostgres:
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, PostgresDialect{}, nil
	case DriverSQLite:
		db, err := openSQLite(strings.TrimPrefix(databaseURL, sqliteScheme))
		if err != nil {
			return nil, nil, err
		}
		return db, SQLiteDialect{}, nil
	default:
		return nil, nil, fmt.Errorf("driver %q is not an SQL driver", driver)
	}
}

// Dialect はSQL方言の差異を吸収する。
// クエリはPostgreSQLの$N形式で記述し、Rebindで各方言に変換する。
type Dialect interface {
	Rebind(query string) string
	IsUniqueViolation(err error) bool
}

// PostgresDialect はPostgreSQL方言。
type PostgresDialect struct{}

// Rebind はクエリをそのまま返す。
func (PostgresDialect) Rebind(query string) string { return query }

// IsUniqueViolation は一意制約違反（SQLSTATE 23505）かを判定する。
func (PostgresDialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var pgPlaceholderRe = regexp.MustCompile(`\$\d+`)

// SQLiteDialect はSQLite方言。
type SQLiteDialect struct{}

// Rebind は$N形式のプレースホルダーを?に変換する。
// 各プレースホルダーはクエリ中で出現順に1回ずつ使うこと。
func (SQLiteDialect) Rebind(query string) string {
	return pgPlaceholderRe.ReplaceAllString(query, "?")
}

// IsUniqueViolation はUNIQUE制約または主キー制約の違反かを判定する。
func (SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ Dialect = PostgresDialect{}
	_ Dialect = SQLiteDialect{}
)
