package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"docqr/internal/config"
)

var sqlOpen = sql.Open

// BuildPostgresDSN builds a postgres:// URL from c. Credentials are escaped,
// and the connection is tagged with application_name so it is visible in
// pg_stat_activity.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"DB_HOST", c.Host}, {"DB_PORT", c.Port}, {"DB_USER", c.User}, {"DB_NAME", c.Name},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("invalid database config: missing %s", strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	q := url.Values{}
	q.Set("application_name", "docqr")
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// retryDelay is the pause between connection attempts.
var retryDelay = 2 * time.Second

// NewPostgres opens a database/sql connection using the pgx stdlib driver and applies pooling settings.
// The first ping is retried up to c.ConnectRetries times, since the database container
// usually starts alongside the app.
func NewPostgres(ctx context.Context, c config.DatabaseConfig, log logrus.FieldLogger) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	// Register the otelsql driver wrapper
	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	// Apply connection pool settings if provided
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}

	attempts := c.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = ping(ctx, db)
		if err == nil {
			break
		}
		if i >= attempts {
			_ = db.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		log.WithFields(logrus.Fields{
			"component": "database",
			"db_host":   c.Host,
			"attempt":   i,
		}).WithError(err).Warn("database not ready, retrying")

		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("db ping: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	return db, nil
}

// ping verifies connectivity with a short timeout.
func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
