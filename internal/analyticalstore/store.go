// Package analyticalstore defines the analytical query collaborator:
// shared read-only views plus per-thread scratch namespaces, with an
// in-memory implementation and a Postgres-backed one.
package analyticalstore

import "context"

// Result is a tabular query result: column names plus row values in
// the same order, the shape GET /data returns.
type Result struct {
	Columns []string
	Rows    [][]any
}

// AsMaps converts the result into row-maps keyed by column name, the
// shape tools store in a scratch namespace.
func (r Result) AsMaps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// AnalyticalStore is the external collaborator providing view queries and
// a per-thread scratch namespace supporting SQL against stored tables
//. Namespaces are isolated: no tool may read or write
// another thread's namespace.
type AnalyticalStore interface {
	// Schema returns the textual column description of a named view, for
	// the view_schema tool.
	Schema(ctx context.Context, viewName string) (string, error)
	// ExecuteView runs sql against a named, pre-existing analytical view.
	ExecuteView(ctx context.Context, viewName, sql string) (Result, error)
	// CreateTable stores rows as a new named table inside namespace.
	CreateTable(ctx context.Context, namespace, ref string, rows []map[string]any) error
	// Execute runs sql against tables previously created in namespace.
	Execute(ctx context.Context, namespace, sql string) (Result, error)
	// DropNamespace releases every table created in namespace.
	DropNamespace(ctx context.Context, namespace string) error
}

// Factory builds a fresh AnalyticalStore handle, one per thread, matching
// "the analytical store connection per thread is not shared across
// threads".
type Factory interface {
	NewStore() AnalyticalStore
}
