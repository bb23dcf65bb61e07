// Package testutil provides database and Redis helpers for integration tests.
// Tests skip when the backing infrastructure is unreachable unless
// TEST_REQUIRE_DB / TEST_REQUIRE_REDIS / TEST_REQUIRE_INFRA demand it.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/internal/migrate"
)

// TestingTB covers the subset of *testing.T and *testing.B these helpers need.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

// TestTime is the fixed instant repository tests pin their clocks to.
func TestTime() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testDSN() string {
	host := envOr("TEST_DB_HOST", "localhost")
	// 55432 is the docker-compose test profile; CI sets TEST_DB_PORT=5432.
	port := envOr("TEST_DB_PORT", "55432")
	user := envOr("TEST_DB_USER", "fieldwork")
	pass := envOr("TEST_DB_PASSWORD", "fieldwork")
	name := envOr("TEST_DB_NAME", "fieldwork")
	ssl := envOr("DB_SSL_MODE", "disable")
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		user, pass, net.JoinHostPort(host, port), name, ssl)
}

// SkipIfNoTestDB skips the test when the test database cannot be reached.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		unavailableDB(t, err)
		return
	}
	defer closeQuietly(t, "test db", db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		unavailableDB(t, pingErr)
	}
}

func unavailableDB(t TestingTB, err error) {
	if requireDB() {
		t.Fatal("test database not available:", err)
	}
	t.Skip("test database not available:", err)
}

// WithAutoDB hands fn a migrated database. With TEST_DB_EPHEMERAL set, each
// call gets its own schema dropped afterward; otherwise it uses the shared
// test database, truncated before and after.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)

	if envBool("TEST_DB_EPHEMERAL") {
		fn(ephemeralSchemaDB(t))
		return
	}

	db := openSharedDB(t)
	defer func() {
		truncateAll(t, db)
		closeQuietly(t, "test db", db)
	}()
	fn(db)
}

func openSharedDB(t TestingTB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Fatal("open test database:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		t.Fatal("connect to test database:", pingErr)
	}
	if migrateErr := migrate.Run(ctx, db); migrateErr != nil {
		t.Fatal("run migrations:", migrateErr)
	}
	truncateAll(t, db)
	return db
}

// truncateAll deletes rows children-first so foreign keys hold.
func truncateAll(t TestingTB, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables := []string{
		"evidence",
		"job_completions",
		"invoice_jobs",
		"invoices",
		"payout_batch_jobs",
		"payout_batches",
		"audit_log",
		"jobs",
		"work_orders",
		"vendor_workers",
		"sites",
		"leads",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
}

// ephemeralSchemaDB creates a throwaway schema, migrates it, and registers a
// cleanup dropping it. Used for parallel packages against one database.
func ephemeralSchemaDB(t TestingTB) *sql.DB {
	t.Helper()

	adminDB, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Fatal("open admin connection:", err)
	}

	schema := "t_" + randomSuffix()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, execErr := adminDB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); execErr != nil {
		closeQuietly(t, "admin db", adminDB)
		t.Fatalf("create schema %s: %v", schema, execErr)
	}

	db := openSchemaDB(t, adminDB, schema)

	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(func() {
			dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dropCancel()
			closeQuietly(t, "schema db", db)
			if _, dropErr := adminDB.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
				t.Logf("drop schema %s: %v", schema, dropErr)
			}
			closeQuietly(t, "admin db", adminDB)
		})
	}

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer migrateCancel()
	if migrateErr := migrate.Run(migrateCtx, db); migrateErr != nil {
		t.Fatal("run migrations in ephemeral schema:", migrateErr)
	}
	return db
}

func openSchemaDB(t TestingTB, adminDB *sql.DB, schema string) *sql.DB {
	t.Helper()

	u, err := url.Parse(testDSN())
	if err != nil {
		closeQuietly(t, "admin db", adminDB)
		t.Fatal("parse test DSN:", err)
	}
	q := u.Query()
	q.Set("search_path", schema+",public")
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		closeQuietly(t, "admin db", adminDB)
		t.Fatal("open schema-scoped connection:", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		closeQuietly(t, "schema db", db)
		closeQuietly(t, "admin db", adminDB)
		t.Fatal("ping schema-scoped connection:", pingErr)
	}
	return db
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// GetTestRedisAddr probes for a reachable test Redis, preferring REDIS_ADDR,
// then the usual CI addresses, then the docker-compose test port.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr, redisReachable(t, addr)
	}
	for _, addr := range []string{"redis:6379", "localhost:6379"} {
		if redisReachable(t, addr) {
			return addr, true
		}
	}
	addr := "localhost:56379"
	return addr, redisReachable(t, addr)
}

func redisReachable(t TestingTB, addr string) bool {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer closeQuietly(t, "redis probe", client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("redis not available at %s: %v", addr, err)
		return false
	}
	return true
}

// SetupTestRedis returns a client on a reserved Redis DB index, flushed.
// Skips when no test Redis is reachable.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("redis not available for testing")
		}
		t.Skip("redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		closeQuietly(t, "redis client", client)
		if requireRedis() {
			t.Fatalf("redis not available at %s: %v", addr, err)
		}
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	client.FlushDB(ctx)
	return client
}

// reserveRedisDB picks a DB index in [1..15] so packages running in parallel
// do not flush each other. Reservation locks live in DB 0, out of reach of
// the FlushDB each test issues on its own index. TEST_REDIS_DB overrides.
func reserveRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer closeQuietly(t, "redis meta client", meta)

	for i := 1; i <= 15; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lockKey := fmt.Sprintf("fieldwork:testutil:db_lock:%d", i)
		lockVal := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
		won, err := meta.SetNX(ctx, lockKey, lockVal, 30*time.Minute).Result()
		cancel()
		if err != nil || !won {
			continue
		}

		if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
			tc.Cleanup(func() { releaseRedisDB(t, addr, lockKey) })
		}
		return i
	}

	t.Logf("no free redis db lock at %s, sharing DB 1", addr)
	return 1
}

func releaseRedisDB(t TestingTB, addr, lockKey string) {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer closeQuietly(t, "redis cleanup client", c)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Del(ctx, lockKey).Err(); err != nil {
		t.Logf("release redis db lock %s: %v", lockKey, err)
	}
}

func closeQuietly(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("close %s: %v", name, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
