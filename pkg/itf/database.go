package itf

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/iota-uz/greeting-store/pkg/dbmigrate"
)

// DSNEnv names the admin connection string used by integration tests. Tests
// that need a database are skipped when it is unset.
const DSNEnv = "GREETING_TEST_DSN"

const (
	// PostgreSQL database name maximum length is 63 characters
	maxDBNameLength  = 63
	hashSuffixLength = 9
)

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// DatabaseManager handles database lifecycle for tests
type DatabaseManager struct {
	pool     *pgxpool.Pool
	dbName   string
	adminDSN string
}

// NewDatabaseManager creates a fresh migrated database named after the test and
// drops it on cleanup.
func NewDatabaseManager(t *testing.T) *DatabaseManager {
	t.Helper()

	adminDSN := os.Getenv(DSNEnv)
	if adminDSN == "" {
		t.Skipf("%s is not set", DSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := sanitizeDBName(t.Name())
	if err := withAdmin(adminDSN, func(db *sql.DB) error { return recreateDB(ctx, db, dbName) }); err != nil {
		t.Fatalf("create database %s: %v", dbName, err)
	}

	pool, err := NewPool(ctx, adminDSN, dbName)
	if err != nil {
		t.Fatalf("connect %s: %v", dbName, err)
	}

	dm := &DatabaseManager{pool: pool, dbName: dbName, adminDSN: adminDSN}
	t.Cleanup(dm.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate %s: %v", dbName, err)
	}
	return dm
}

// Pool returns the database pool
func (dm *DatabaseManager) Pool() *pgxpool.Pool {
	return dm.pool
}

// Close closes the pool and drops the database.
func (dm *DatabaseManager) Close() {
	if dm.pool == nil {
		return
	}
	dm.pool.Close()
	dm.pool = nil

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := withAdmin(dm.adminDSN, func(db *sql.DB) error { return dropDB(ctx, db, dm.dbName) }); err != nil {
		log.Printf("[WARNING] drop test database %s: %v", dm.dbName, err)
	}
}

// NewPool connects to dbName using the admin DSN's host and credentials.
func NewPool(ctx context.Context, adminDSN, dbName string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(adminDSN)
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Database = dbName
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Minute * 5
	config.MaxConnIdleTime = time.Second * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded migrations over the pool's connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	m, err := dbmigrate.New(db, nil)
	if err != nil {
		return err
	}
	_, err = m.Up(ctx)
	return err
}

func recreateDB(ctx context.Context, db *sql.DB, name string) error {
	if err := dropDB(ctx, db, name); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	return err
}

func dropDB(ctx context.Context, db *sql.DB, name string) error {
	_, err := db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)")
	return err
}

func withAdmin(adminDSN string, fn func(db *sql.DB) error) error {
	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[WARNING] Error closing admin connection: %v", err)
		}
	}()
	return fn(db)
}

// sanitizeDBName lowercases name, folds unsafe runs into underscores and keeps
// the result within PostgreSQL's identifier limit.
func sanitizeDBName(name string) string {
	sanitized := unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "test_db"
	}
	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(name)))[:hashSuffixLength-1]
	truncated := strings.TrimRight(sanitized[:maxDBNameLength-hashSuffixLength], "_")
	return truncated + "_" + hash
}
