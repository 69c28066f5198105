package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
)

func TestBuildConnectionString_EscapesCredentials(t *testing.T) {
	params := datasource.ConnectionParams{
		Host:     "db.example.com",
		Port:     6543,
		Database: "my db",
		User:     "user@corp",
		Password: "p@ss/w#rd?&",
		SSLMode:  "require",
	}

	connStr := buildConnectionString(params, nil)

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.example.com:6543", u.Host)
	assert.Equal(t, "/my db", u.Path)
	assert.Equal(t, "user@corp", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w#rd?&", password)

	q := u.Query()
	assert.Equal(t, "require", q.Get("sslmode"))
	assert.Equal(t, "10", q.Get("connect_timeout"))
	assert.Equal(t, ApplicationName, q.Get("application_name"))
}

func TestBuildConnectionString_Defaults(t *testing.T) {
	connStr := buildConnectionString(datasource.ConnectionParams{Host: "localhost", User: "postgres"}, nil)

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/postgres", u.Path)
	assert.Equal(t, "prefer", u.Query().Get("sslmode"))
}

func TestBuildConnectionString_ResolvesHost(t *testing.T) {
	resolve := func(host string) string { return "resolved-" + host }

	connStr := buildConnectionString(datasource.ConnectionParams{Host: "localhost", User: "u"}, resolve)

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "resolved-localhost", u.Hostname())
}

func TestBuildConnectionString_IPv6Host(t *testing.T) {
	connStr := buildConnectionString(datasource.ConnectionParams{Host: "::1", Port: 5433, User: "u"}, nil)

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:5433", u.Host)
	assert.Equal(t, "::1", u.Hostname())
	assert.Equal(t, "5433", u.Port())

	cfg, err := pgx.ParseConfig(connStr)
	require.NoError(t, err)
	assert.Equal(t, "::1", cfg.Host)
	assert.Equal(t, uint16(5433), cfg.Port)
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline exceeded", fmt.Errorf("dial: %w", context.DeadlineExceeded), apperrors.ErrConnectionTimeout},
		{"os deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), apperrors.ErrConnectionTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutNetError{}}, apperrors.ErrConnectionTimeout},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, apperrors.ErrConnectionRefused},
		{"auth failure", errors.New(`password authentication failed for user "bob"`), apperrors.ErrConnectionRefused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyConnectError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "expected %v, got %v", tt.want, got)
			assert.True(t, errors.Is(got, tt.err), "driver error must stay reachable")
		})
	}
}

func TestClassifyConnectError_CancelIsNotClassified(t *testing.T) {
	got := classifyConnectError(fmt.Errorf("connect: %w", context.Canceled))

	assert.True(t, errors.Is(got, context.Canceled))
	assert.False(t, apperrors.IsConnectionError(got))
}

func TestConnector_Refused(t *testing.T) {
	// Grab a free port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := NewConnector(nil, zaptest.NewLogger(t))
	_, err = c.Connect(context.Background(), datasource.ConnectionParams{
		Host:           "127.0.0.1",
		Port:           port,
		User:           "postgres",
		Password:       "secret",
		ConnectTimeout: 2,
		SSLMode:        "disable",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnectionRefused), "got %v", err)
}

func TestConnector_Timeout(t *testing.T) {
	// A listener that accepts but never speaks the protocol.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var accepted []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			accepted = append(accepted, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range accepted {
			_ = c.Close()
		}
	})

	port := ln.Addr().(*net.TCPAddr).Port

	c := NewConnector(nil, zaptest.NewLogger(t))
	start := time.Now()
	_, err = c.Connect(context.Background(), datasource.ConnectionParams{
		Host:           "127.0.0.1",
		Port:           port,
		User:           "postgres",
		ConnectTimeout: 1,
		SSLMode:        "disable",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnectionTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
