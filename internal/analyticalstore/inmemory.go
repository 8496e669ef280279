package analyticalstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// InMemoryStore backs scratch namespaces with plain Go maps; scratch
// data lives only for the owning thread's lifetime. It understands a
// narrow "SELECT cols FROM table [WHERE col = literal] [LIMIT n]"
// subset of SQL, enough to serve the tool surface without embedding a
// real SQL engine.
type InMemoryStore struct {
	mu      sync.RWMutex
	tables  map[string][]map[string]any // "namespace/ref" -> rows
	views   map[string][]map[string]any // shared, read-only view datasets
	schemas map[string]string           // shared, read-only view schema text
}

// InMemoryFactory vends InMemoryStore instances that all share the same
// view dataset registry but keep independent scratch tables.
type InMemoryFactory struct {
	mu      sync.RWMutex
	views   map[string][]map[string]any
	schemas map[string]string
}

// NewInMemoryFactory creates a factory with no registered views.
func NewInMemoryFactory() *InMemoryFactory {
	return &InMemoryFactory{views: make(map[string][]map[string]any), schemas: make(map[string]string)}
}

// RegisterView makes a named view's rows available to every store this
// factory creates. schema is the textual description view_schema
// returns for this view.
func (f *InMemoryFactory) RegisterView(name string, rows []map[string]any, schema string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[name] = rows
	f.schemas[name] = schema
}

// NewStore implements Factory.
func (f *InMemoryFactory) NewStore() AnalyticalStore {
	f.mu.RLock()
	defer f.mu.RUnlock()
	views := make(map[string][]map[string]any, len(f.views))
	for k, v := range f.views {
		views[k] = v
	}
	schemas := make(map[string]string, len(f.schemas))
	for k, v := range f.schemas {
		schemas[k] = v
	}
	return &InMemoryStore{
		tables:  make(map[string][]map[string]any),
		views:   views,
		schemas: schemas,
	}
}

func (s *InMemoryStore) Schema(ctx context.Context, viewName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[viewName]
	if !ok {
		return "", fmt.Errorf("view %q not found", viewName)
	}
	return schema, nil
}

func (s *InMemoryStore) ExecuteView(ctx context.Context, viewName, sql string) (Result, error) {
	s.mu.RLock()
	rows, ok := s.views[viewName]
	s.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("view %q not found", viewName)
	}
	return runQuery(sql, rows)
}

func (s *InMemoryStore) CreateTable(ctx context.Context, namespace, ref string, rows []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[key(namespace, ref)] = rows
	return nil
}

func (s *InMemoryStore) Execute(ctx context.Context, namespace, sql string) (Result, error) {
	table, ok := tableNameFromSQL(sql)
	if !ok {
		return Result{}, fmt.Errorf("could not determine table name from query: %s", sql)
	}
	s.mu.RLock()
	rows, ok := s.tables[key(namespace, table)]
	s.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("table %q not found in namespace %q", table, namespace)
	}
	return runQuery(sql, rows)
}

func (s *InMemoryStore) DropNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := namespace + "/"
	for k := range s.tables {
		if strings.HasPrefix(k, prefix) {
			delete(s.tables, k)
		}
	}
	return nil
}

func key(namespace, ref string) string { return namespace + "/" + ref }

var (
	selectRe = regexp.MustCompile(`(?is)^\s*select\s+(.+?)\s+from\s+([a-zA-Z0-9_]+)\s*(?:where\s+(.+?))?\s*(?:limit\s+(\d+))?\s*;?\s*$`)
	whereRe  = regexp.MustCompile(`(?is)^\s*([a-zA-Z0-9_]+)\s*=\s*'?([^']*?)'?\s*$`)
)

func tableNameFromSQL(sql string) (string, bool) {
	m := selectRe.FindStringSubmatch(sql)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// runQuery evaluates the narrow SELECT subset against rows.
func runQuery(sql string, rows []map[string]any) (Result, error) {
	m := selectRe.FindStringSubmatch(sql)
	if m == nil {
		return Result{}, fmt.Errorf("unsupported query: %s", sql)
	}
	colsPart, where, limitPart := m[1], m[3], m[4]

	filtered := rows
	if where != "" {
		wm := whereRe.FindStringSubmatch(where)
		if wm == nil {
			return Result{}, fmt.Errorf("unsupported WHERE clause: %s", where)
		}
		col, val := wm[1], wm[2]
		filtered = nil
		for _, row := range rows {
			if fmt.Sprintf("%v", row[col]) == val {
				filtered = append(filtered, row)
			}
		}
	}

	if limitPart != "" {
		if n, err := strconv.Atoi(limitPart); err == nil && n < len(filtered) {
			filtered = filtered[:n]
		}
	}

	cols := columnsFor(colsPart, filtered)
	out := Result{Columns: cols}
	for _, row := range filtered {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = row[c]
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, nil
}

func columnsFor(colsPart string, rows []map[string]any) []string {
	trimmed := strings.TrimSpace(colsPart)
	if trimmed != "*" {
		parts := strings.Split(trimmed, ",")
		cols := make([]string, len(parts))
		for i, p := range parts {
			cols[i] = strings.TrimSpace(p)
		}
		return cols
	}
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols) // map iteration order is not stable
	return cols
}
