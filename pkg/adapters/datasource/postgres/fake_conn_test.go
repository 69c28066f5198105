package postgres

import (
	"context"
	"sync"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
)

// recordedQuery is one call made against fakeConn.
type recordedQuery struct {
	SQL  string
	Args []any
}

// fakeConn is a datasource.Conn driven by a handler function.
type fakeConn struct {
	mu      sync.Mutex
	queries []recordedQuery
	closed  int
	handle  func(sql string, args []any) ([]datasource.Row, error)
}

func (f *fakeConn) Query(_ context.Context, sql string, args ...any) ([]datasource.Row, error) {
	f.mu.Lock()
	f.queries = append(f.queries, recordedQuery{SQL: sql, Args: args})
	f.mu.Unlock()
	if f.handle == nil {
		return nil, nil
	}
	return f.handle(sql, args)
}

func (f *fakeConn) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConn) recorded() []recordedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedQuery(nil), f.queries...)
}

// row builds a datasource.Row from alternating name, value pairs.
func row(kv ...any) datasource.Row {
	r := make(datasource.Row, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		r = append(r, datasource.Field{Name: kv[i].(string), Value: kv[i+1]})
	}
	return r
}
