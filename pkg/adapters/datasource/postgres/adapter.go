package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
	"github.com/ekaya-inc/pg-discover/pkg/logging"
)

// Connector opens one PostgreSQL connection per call. There is no pooling:
// every request owns its connection for its lifetime.
type Connector struct {
	resolveHost func(string) string
	logger      *zap.Logger
}

// NewConnector creates a PostgreSQL connector.
// resolveHost may be nil; if logger is nil, a no-op logger is used.
func NewConnector(resolveHost func(string) string, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		resolveHost: resolveHost,
		logger:      logger,
	}
}

// Connect opens a connection to the target described by params.
func (c *Connector) Connect(ctx context.Context, params datasource.ConnectionParams) (datasource.Conn, error) {
	connConfig, err := pgx.ParseConfig(buildConnectionString(params, c.resolveHost))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid connection parameters: %s", apperrors.ErrConnectionRefused, logging.SanitizeError(err))
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		classified := classifyConnectError(err)
		c.logger.Debug("Connect failed",
			zap.String("target", params.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, classified
	}

	return &pgConn{conn: conn}, nil
}

// classifyConnectError maps a connect failure to ErrConnectionTimeout or
// ErrConnectionRefused. Caller cancellation is passed through unclassified.
func classifyConnectError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("connect cancelled: %w", err)
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrConnectionTimeout, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrConnectionRefused, err)
}

func isTimeout(err error) bool {
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// pgConn adapts *pgx.Conn to datasource.Conn.
type pgConn struct {
	conn      *pgx.Conn
	closeOnce sync.Once
	closeErr  error
}

// Query runs sql with bound args and maps every row to a datasource.Row.
func (c *pgConn) Query(ctx context.Context, sql string, args ...any) ([]datasource.Row, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryFailure, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := make([]datasource.Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: read row values: %w", apperrors.ErrQueryFailure, err)
		}

		row := make(datasource.Row, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[i] = datasource.Field{Name: fd.Name, Value: values[i]}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryFailure, err)
	}

	return result, nil
}

// Close closes the underlying connection once; later calls return the first result.
func (c *pgConn) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close(ctx)
	})
	return c.closeErr
}

// Ensure implementations satisfy the datasource interfaces at compile time.
var (
	_ datasource.Connector = (*Connector)(nil)
	_ datasource.Conn      = (*pgConn)(nil)
)
