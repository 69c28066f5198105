package handlers

import (
	"context"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/cache"
	"github.com/ekaya-inc/pg-discover/pkg/models"
	"github.com/ekaya-inc/pg-discover/pkg/services"
)

// serviceCall records the arguments of one DiscoveryService call.
type serviceCall struct {
	Op       string
	Params   datasource.ConnectionParams
	Database string
	Schema   string
	Table    string
	Limit    int
}

// mockDiscoveryService is a configurable DiscoveryService for handler tests.
type mockDiscoveryService struct {
	catalogs    []models.Catalog
	schemas     *models.SchemaList
	tables      *models.TableList
	detail      *models.TableDetail
	sample      *models.TableSample
	constraints *models.TableConstraints
	stats       *models.SchemaStats
	err         error
	calls       []serviceCall
}

func (m *mockDiscoveryService) record(c serviceCall) {
	m.calls = append(m.calls, c)
}

func (m *mockDiscoveryService) DiscoverAll(_ context.Context, params datasource.ConnectionParams) ([]models.Catalog, error) {
	m.record(serviceCall{Op: "DiscoverAll", Params: params})
	return m.catalogs, m.err
}

func (m *mockDiscoveryService) ListSchemas(_ context.Context, params datasource.ConnectionParams, database string) (*models.SchemaList, error) {
	m.record(serviceCall{Op: "ListSchemas", Params: params, Database: database})
	return m.schemas, m.err
}

func (m *mockDiscoveryService) ListTables(_ context.Context, params datasource.ConnectionParams, database, schema string) (*models.TableList, error) {
	m.record(serviceCall{Op: "ListTables", Params: params, Database: database, Schema: schema})
	return m.tables, m.err
}

func (m *mockDiscoveryService) GetTable(_ context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableDetail, error) {
	m.record(serviceCall{Op: "GetTable", Params: params, Database: database, Schema: schema, Table: table})
	return m.detail, m.err
}

func (m *mockDiscoveryService) SampleTable(_ context.Context, params datasource.ConnectionParams, database, schema, table string, limit int) (*models.TableSample, error) {
	m.record(serviceCall{Op: "SampleTable", Params: params, Database: database, Schema: schema, Table: table, Limit: limit})
	return m.sample, m.err
}

func (m *mockDiscoveryService) GetTableConstraints(_ context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableConstraints, error) {
	m.record(serviceCall{Op: "GetTableConstraints", Params: params, Database: database, Schema: schema, Table: table})
	return m.constraints, m.err
}

func (m *mockDiscoveryService) GetSchemaStats(_ context.Context, params datasource.ConnectionParams, database, schema string) (*models.SchemaStats, error) {
	m.record(serviceCall{Op: "GetSchemaStats", Params: params, Database: database, Schema: schema})
	return m.stats, m.err
}

func (m *mockDiscoveryService) CacheStats() cache.Stats {
	return cache.Stats{}
}

var _ services.DiscoveryService = (*mockDiscoveryService)(nil)
