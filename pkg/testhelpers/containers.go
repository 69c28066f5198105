// Package testhelpers provides utilities for testing pg-discover components.
package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/retry"
)

// PostgresTestImage is the stock PostgreSQL image the fixture is loaded into.
const PostgresTestImage = "postgres:16-alpine"

const (
	TestDatabase = "db1"
	TestUser     = "discover"
	TestPassword = "test_password"
)

// FixtureSQL is executed by the container entrypoint on first start.
// Layout: public.users, public.orders, public.active_users (view),
// public."odd ""name""" and audit.events.
const FixtureSQL = `
CREATE TABLE public.users (
	id SERIAL PRIMARY KEY,
	email VARCHAR(50) NOT NULL UNIQUE,
	name TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE public.orders (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES public.users(id),
	total NUMERIC(10,2) NOT NULL CHECK (total >= 0)
);

CREATE VIEW public.active_users AS SELECT id, email FROM public.users;

CREATE TABLE public."odd ""name""" (
	id INTEGER
);

CREATE SCHEMA audit;

CREATE TABLE audit.events (
	id UUID PRIMARY KEY,
	payload JSONB,
	happened_at TIMESTAMPTZ
);

INSERT INTO public.users (email, name)
SELECT 'user' || g || '@example.com', 'User ' || g FROM generate_series(1, 25) g;

INSERT INTO public.orders (user_id, total)
SELECT (g % 25) + 1, g * 1.5 FROM generate_series(1, 40) g;

INSERT INTO public."odd ""name""" VALUES (1), (2);

INSERT INTO audit.events (id, payload, happened_at) VALUES
	('7f1d3c1e-3a55-4e40-9f4b-2f7d0c8b2e11', '{"kind": "login"}', '2024-01-02T03:04:05Z');

ANALYZE;
`

// TestDB holds a shared test database container.
type TestDB struct {
	Container testcontainers.Container
	Params    datasource.ConnectionParams
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       TestDatabase,
			"POSTGRES_USER":     TestUser,
			"POSTGRES_PASSWORD": TestPassword,
		},
		Files: []testcontainers.ContainerFile{
			{
				Reader:            strings.NewReader(FixtureSQL),
				ContainerFilePath: "/docker-entrypoint-initdb.d/01_fixture.sql",
				FileMode:          0o644,
			},
		},
		// The entrypoint restarts the server once after running init scripts.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		TestUser, TestPassword, host, port.Port(), TestDatabase)

	// The init script restarts the server once, so early connects can fail.
	readiness := &retry.Config{MaxRetries: 10, InitialDelay: 250 * time.Millisecond, MaxDelay: 2 * time.Second, Multiplier: 2}
	err = retry.Do(ctx, readiness, func() error {
		conn, err := pgx.Connect(ctx, connStr)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close(ctx) }()
		return conn.Ping(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("test database not reachable: %w", err)
	}

	return &TestDB{
		Container: container,
		Params: datasource.ConnectionParams{
			Host:           host,
			Port:           port.Int(),
			Database:       TestDatabase,
			User:           TestUser,
			Password:       TestPassword,
			ConnectTimeout: 5,
			SSLMode:        "disable",
		},
		ConnStr: connStr,
	}, nil
}
