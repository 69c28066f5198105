package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
	"github.com/ekaya-inc/pg-discover/pkg/cache"
	"github.com/ekaya-inc/pg-discover/pkg/logging"
	"github.com/ekaya-inc/pg-discover/pkg/models"
)

// Cache key operation names.
const (
	opDiscoverAll = "discover_all"
	opListSchemas = "list_schemas"
	opListTables  = "list_tables"
	opGetTable    = "get_table"
	opConstraints = "get_table_constraints"
	opSchemaStats = "get_schema_stats"
)

const (
	DefaultSampleLimit = 10
	MaxSampleLimit     = 1000
)

// DiscoveryService defines the metadata discovery operations.
// Every call opens its own connection and closes it before returning.
type DiscoveryService interface {
	// DiscoverAll returns every catalog → schema → table → column visible
	// through the connection.
	DiscoverAll(ctx context.Context, params datasource.ConnectionParams) ([]models.Catalog, error)

	// ListSchemas returns the non-system schemas of database.
	ListSchemas(ctx context.Context, params datasource.ConnectionParams, database string) (*models.SchemaList, error)

	// ListTables returns the table and view names of database.schema.
	ListTables(ctx context.Context, params datasource.ConnectionParams, database, schema string) (*models.TableList, error)

	// GetTable returns one table with its columns.
	GetTable(ctx context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableDetail, error)

	// SampleTable returns up to limit randomly ordered rows. Results are never cached.
	SampleTable(ctx context.Context, params datasource.ConnectionParams, database, schema, table string, limit int) (*models.TableSample, error)

	// GetTableConstraints returns the constraints declared on a table.
	GetTableConstraints(ctx context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableConstraints, error)

	// GetSchemaStats returns planner estimates for every table of a schema.
	GetSchemaStats(ctx context.Context, params datasource.ConnectionParams, database, schema string) (*models.SchemaStats, error)

	// CacheStats reports result cache activity.
	CacheStats() cache.Stats
}

// SampleLimits bounds SampleTable.
type SampleLimits struct {
	Default int
	Max     int
}

// discoveryService implements DiscoveryService.
type discoveryService struct {
	connector datasource.Connector
	cache     *cache.Cache
	limits    SampleLimits
	logger    *zap.Logger
}

// NewDiscoveryService creates a discovery service with dependencies.
func NewDiscoveryService(
	connector datasource.Connector,
	resultCache *cache.Cache,
	limits SampleLimits,
	logger *zap.Logger,
) DiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.Default <= 0 {
		limits.Default = DefaultSampleLimit
	}
	if limits.Max <= 0 {
		limits.Max = MaxSampleLimit
	}
	return &discoveryService{
		connector: connector,
		cache:     resultCache,
		limits:    limits,
		logger:    logger.Named("discovery"),
	}
}

func (s *discoveryService) DiscoverAll(ctx context.Context, params datasource.ConnectionParams) ([]models.Catalog, error) {
	params = params.WithDefaults()
	key := cache.Key(opDiscoverAll, params.Fingerprint())

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]models.Catalog, error) {
		var catalogs []models.Catalog
		err := s.withDiscoverer(ctx, opDiscoverAll, params, func(d *postgres.SchemaDiscoverer) error {
			rows, err := d.ListTables(ctx)
			if err != nil {
				return err
			}
			catalogs, err = AssembleCatalogs(ctx, rows, d.ListColumns)
			return err
		})
		return catalogs, err
	})
}

func (s *discoveryService) ListSchemas(ctx context.Context, params datasource.ConnectionParams, database string) (*models.SchemaList, error) {
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	key := cache.Key(opListSchemas, params.Fingerprint(), database)

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.SchemaList, error) {
		var result *models.SchemaList
		err := s.withDiscoverer(ctx, opListSchemas, params, func(d *postgres.SchemaDiscoverer) error {
			names, err := d.ListSchemaNames(ctx, database)
			if err != nil {
				return err
			}
			result = &models.SchemaList{DatabaseName: database, Schemas: names}
			return nil
		})
		return result, err
	})
}

func (s *discoveryService) ListTables(ctx context.Context, params datasource.ConnectionParams, database, schema string) (*models.TableList, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	key := cache.Key(opListTables, params.Fingerprint(), database, schema)

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.TableList, error) {
		var result *models.TableList
		err := s.withDiscoverer(ctx, opListTables, params, func(d *postgres.SchemaDiscoverer) error {
			names, err := d.ListTableNames(ctx, database, schema)
			if err != nil {
				return err
			}
			result = &models.TableList{DatabaseName: database, SchemaName: schema, Tables: names}
			return nil
		})
		return result, err
	})
}

func (s *discoveryService) GetTable(ctx context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableDetail, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	key := cache.Key(opGetTable, params.Fingerprint(), database, schema, table)

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.TableDetail, error) {
		var result *models.TableDetail
		err := s.withDiscoverer(ctx, opGetTable, params, func(d *postgres.SchemaDiscoverer) error {
			ref, err := d.LookupTable(ctx, database, schema, table)
			if err != nil {
				return err
			}
			columns, err := d.ListCatalogColumns(ctx, database, schema, table)
			if err != nil {
				return err
			}
			result = &models.TableDetail{
				DatabaseName: database,
				SchemaName:   schema,
				Table: models.Table{
					Name:    ref.Name,
					Kind:    ref.Kind,
					Columns: columns,
				},
			}
			return nil
		})
		return result, err
	})
}

func (s *discoveryService) SampleTable(ctx context.Context, params datasource.ConnectionParams, database, schema, table string, limit int) (*models.TableSample, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	limit = s.clampLimit(limit)

	var result *models.TableSample
	err := s.withDiscoverer(ctx, "sample_table", params, func(d *postgres.SchemaDiscoverer) error {
		rows, err := d.SampleRows(ctx, database, schema, table, limit)
		if err != nil {
			return err
		}
		result = &models.TableSample{
			DatabaseName: database,
			SchemaName:   schema,
			TableName:    table,
			Rows:         rows,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *discoveryService) GetTableConstraints(ctx context.Context, params datasource.ConnectionParams, database, schema, table string) (*models.TableConstraints, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	key := cache.Key(opConstraints, params.Fingerprint(), database, schema, table)

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.TableConstraints, error) {
		var result *models.TableConstraints
		err := s.withDiscoverer(ctx, opConstraints, params, func(d *postgres.SchemaDiscoverer) error {
			if _, err := d.LookupTable(ctx, database, schema, table); err != nil {
				return err
			}
			constraints, err := d.ListConstraints(ctx, database, schema, table)
			if err != nil {
				return err
			}
			result = &models.TableConstraints{
				DatabaseName: database,
				SchemaName:   schema,
				TableName:    table,
				Constraints:  constraints,
			}
			return nil
		})
		return result, err
	})
}

func (s *discoveryService) GetSchemaStats(ctx context.Context, params datasource.ConnectionParams, database, schema string) (*models.SchemaStats, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	params = params.WithDefaults().WithDatabase(database)
	database = params.Database
	key := cache.Key(opSchemaStats, params.Fingerprint(), database, schema)

	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.SchemaStats, error) {
		var result *models.SchemaStats
		err := s.withDiscoverer(ctx, opSchemaStats, params, func(d *postgres.SchemaDiscoverer) error {
			stats, err := d.SchemaStats(ctx, schema)
			if err != nil {
				return err
			}
			result = &models.SchemaStats{DatabaseName: database, SchemaName: schema, Tables: stats}
			return nil
		})
		return result, err
	})
}

func (s *discoveryService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// withDiscoverer opens a connection, runs fn against it and closes the
// connection on every exit path.
func (s *discoveryService) withDiscoverer(ctx context.Context, op string, params datasource.ConnectionParams, fn func(*postgres.SchemaDiscoverer) error) error {
	logger := s.logger.With(zap.String("operation", op), zap.String("target", params.String()))

	conn, err := s.connector.Connect(ctx, params)
	if err != nil {
		logger.Warn("Connection failed", zap.String("error", logging.SanitizeError(err)))
		return err
	}
	defer func() {
		// ctx may already be cancelled here.
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("Failed to close connection", zap.String("error", logging.SanitizeError(cerr)))
		}
	}()

	if err := fn(postgres.NewSchemaDiscoverer(conn, logger)); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidIdentifier) {
			logger.Debug("Discovery rejected", zap.String("reason", err.Error()))
		} else {
			logger.Error("Discovery failed", zap.String("error", logging.SanitizeError(err)))
		}
		return err
	}
	return nil
}

func (s *discoveryService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.limits.Default
	}
	if limit > s.limits.Max {
		return s.limits.Max
	}
	return limit
}

// checkSchema rejects system schemas before any connection is opened.
func checkSchema(schema string) error {
	if models.IsSystemSchema(schema) {
		return fmt.Errorf("%w: schema %q", apperrors.ErrNotFound, schema)
	}
	return nil
}

// Ensure discoveryService implements DiscoveryService at compile time.
var _ DiscoveryService = (*discoveryService)(nil)

