package datasource

import "context"

// Conn is a single open connection to a datasource.
// Each implementation owns its connection and must be closed exactly once.
type Conn interface {
	// Query runs a read query with bound parameters and returns every row,
	// driver values mapped into the generic Row structure.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// Close releases the connection. Calls after the first are no-ops.
	Close(ctx context.Context) error
}

// Connector opens connections. It is the only place a driver is touched.
type Connector interface {
	// Connect opens a connection or fails with apperrors.ErrConnectionTimeout
	// or apperrors.ErrConnectionRefused wrapping the driver error.
	Connect(ctx context.Context, params ConnectionParams) (Conn, error)
}
