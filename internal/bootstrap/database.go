package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/migrate"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

const connectTimeout = 5 * time.Second

// ConnectDB opens and verifies the PostgreSQL connection pool.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	// url.URL keeps special characters in credentials intact.
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBConfig.User, cfg.DBConfig.Password),
		Host:   net.JoinHostPort(cfg.DBConfig.Host, strconv.Itoa(cfg.DBConfig.Port)),
		Path:   "/" + cfg.DBConfig.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.DBConfig.SSLMode)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

// ConnectRedis opens and verifies a Redis client in direct, sentinel, or
// cluster mode depending on configuration.
//
//nolint:ireturn // redis.UniversalClient covers all three deployment modes.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	var (
		client redis.UniversalClient
		desc   string
		err    error
	)
	switch {
	case cfg.RedisConfig.UseCluster:
		client, desc, err = newClusterClient(cfg.RedisConfig)
	case cfg.RedisConfig.UseSentinel:
		client, desc, err = newSentinelClient(cfg.RedisConfig)
	default:
		client, desc, err = newDirectClient(cfg.RedisConfig)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", redactAddr(desc))
	}
	return client, nil
}

//nolint:ireturn // see ConnectRedis.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	var addrs []string
	for _, addr := range cfg.ClusterNodes {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis cluster mode requires REDIS_CLUSTER_NODES")
	}

	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:    addrs,
		Password: cfg.Password,
	})
	return client, "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // see ConnectRedis.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if len(cfg.SentinelNodes) == 0 {
		return nil, "", errors.New("redis sentinel mode requires REDIS_SENTINEL_NODES")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    cfg.SentinelNodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // see ConnectRedis.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct mode requires REDIS_URI")
	}

	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), opt.Addr, nil
	}
	return redis.NewClient(&redis.Options{Addr: uri, Password: cfg.Password}), uri, nil
}

// redactAddr strips credentials before the address reaches logs.
func redactAddr(desc string) string {
	if u, err := url.Parse(desc); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(desc, "@"); i > -1 {
		return desc[i+1:]
	}
	return desc
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
