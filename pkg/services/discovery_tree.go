package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/ekaya-inc/pg-discover/pkg/models"
)

// ColumnFetcher loads the columns of one table.
type ColumnFetcher func(ctx context.Context, schema, table string) ([]models.Column, error)

// AssembleCatalogs groups flat table rows into a catalog → schema → table tree.
// Catalog names and schema names are distinct and ascending; tables keep their
// relative input order. System schemas are dropped. fetch is called once per table, and its first error
// aborts the assembly.
func AssembleCatalogs(ctx context.Context, rows []models.TableRef, fetch ColumnFetcher) ([]models.Catalog, error) {
	// catalog -> schema -> rows, preserving first-seen table order
	grouped := make(map[string]map[string][]models.TableRef)
	for _, r := range rows {
		if models.IsSystemSchema(r.Schema) {
			continue
		}
		schemas, ok := grouped[r.Catalog]
		if !ok {
			schemas = make(map[string][]models.TableRef)
			grouped[r.Catalog] = schemas
		}
		schemas[r.Schema] = append(schemas[r.Schema], r)
	}

	catalogNames := sortedKeys(grouped)
	catalogs := make([]models.Catalog, 0, len(catalogNames))
	for _, catalogName := range catalogNames {
		schemaNames := sortedKeys(grouped[catalogName])
		catalog := models.Catalog{
			Name:    catalogName,
			Schemas: make([]models.Schema, 0, len(schemaNames)),
		}

		for _, schemaName := range schemaNames {
			refs := grouped[catalogName][schemaName]
			schema := models.Schema{
				Name:   schemaName,
				Tables: make([]models.Table, 0, len(refs)),
			}

			seen := make(map[string]bool, len(refs))
			for _, ref := range refs {
				if seen[ref.Name] {
					continue
				}
				seen[ref.Name] = true

				if err := ctx.Err(); err != nil {
					return nil, err
				}
				columns, err := fetch(ctx, schemaName, ref.Name)
				if err != nil {
					return nil, fmt.Errorf("columns of %s.%s: %w", schemaName, ref.Name, err)
				}
				if columns == nil {
					columns = []models.Column{}
				}

				schema.Tables = append(schema.Tables, models.Table{
					Name:    ref.Name,
					Kind:    models.NormalizeTableKind(string(ref.Kind)),
					Columns: columns,
				})
			}
			catalog.Schemas = append(catalog.Schemas, schema)
		}
		catalogs = append(catalogs, catalog)
	}

	return catalogs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
