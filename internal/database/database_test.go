package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"docqr/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: "5432", User: "docqr", Name: "docqr"}

	tests := []struct {
		name    string
		mutate  func(c *config.DatabaseConfig)
		want    string
		wantErr string
	}{
		{
			name: "password and sslmode",
			mutate: func(c *config.DatabaseConfig) {
				c.Password = "pass"
				c.SSLMode = "disable"
			},
			want: "postgres://docqr:pass@db:5432/docqr?application_name=docqr&sslmode=disable",
		},
		{
			name: "password is escaped",
			mutate: func(c *config.DatabaseConfig) {
				c.Password = "p@ss/word"
			},
			want: "postgres://docqr:p%40ss%2Fword@db:5432/docqr?application_name=docqr",
		},
		{
			name:   "no password, no sslmode",
			mutate: func(c *config.DatabaseConfig) {},
			want:   "postgres://docqr@db:5432/docqr?application_name=docqr",
		},
		{
			name: "ipv6 host",
			mutate: func(c *config.DatabaseConfig) {
				c.Host = "::1"
			},
			want: "postgres://docqr@[::1]:5432/docqr?application_name=docqr",
		},
		{
			name: "missing host",
			mutate: func(c *config.DatabaseConfig) {
				c.Host = ""
			},
			wantErr: "missing DB_HOST",
		},
		{
			name: "every required field missing",
			mutate: func(c *config.DatabaseConfig) {
				*c = config.DatabaseConfig{}
			},
			wantErr: "missing DB_HOST, DB_PORT, DB_USER, DB_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			got, err := BuildPostgresDSN(c)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host:               "localhost",
		Port:               "5432",
		User:               "user",
		Password:           "pass",
		Name:               "dbname",
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 300,
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		// Mock sqlOpen to return the mock db
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing()

		gotDB, err := NewPostgres(context.Background(), conf, quietLogger())
		assert.NoError(t, err)
		assert.NotNil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlOpen error", func(t *testing.T) {
		// Mock sqlOpen to return error
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return nil, errors.New("open error")
		}
		defer func() { sqlOpen = origSqlOpen }()

		gotDB, err := NewPostgres(context.Background(), conf, quietLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sql open: open error")
		assert.Nil(t, gotDB)
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		// No need to defer db.Close() because NewPostgres should close it on ping error

		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))

		gotDB, err := NewPostgres(context.Background(), conf, quietLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "db ping: ping failed")
		assert.Nil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid DSN", func(t *testing.T) {
		invalidConf := config.DatabaseConfig{} // missing host etc
		gotDB, err := NewPostgres(context.Background(), invalidConf, quietLogger())
		assert.Error(t, err)
		assert.Nil(t, gotDB)
	})

	t.Run("ping succeeds after retry", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		origSqlOpen, origDelay := sqlOpen, retryDelay
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		retryDelay = time.Millisecond
		defer func() { sqlOpen, retryDelay = origSqlOpen, origDelay }()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectPing()

		retrying := conf
		retrying.ConnectRetries = 3
		gotDB, err := NewPostgres(context.Background(), retrying, quietLogger())
		assert.NoError(t, err)
		assert.NotNil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
