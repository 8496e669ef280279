package analyticalstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is an alternate AnalyticalStore backend for deployments
// that want scratch tables backed by a real database instead of the
// in-memory reference implementation. Every namespace maps to a Postgres
// schema so that DropNamespace is a single DROP SCHEMA ... CASCADE, and
// tables within a namespace never collide across threads.
//
// cmd/server selects this backend only when postgres.enabled is set in
// the configuration document; the in-memory store remains the default
// since persistent analytical storage is an external concern.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresFactory opens one pgxpool.Pool and vends namespace-scoped
// PostgresStore handles from it.
type PostgresFactory struct {
	pool *pgxpool.Pool
}

// NewPostgresFactory connects to dsn with up to maxConns pooled
// connections.
func NewPostgresFactory(ctx context.Context, dsn string, maxConns int32) (*PostgresFactory, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = maxConns
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PostgresFactory{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (f *PostgresFactory) Close() { f.pool.Close() }

// NewStore implements Factory. Namespaces are created lazily on first
// CreateTable, since the factory does not know the thread ID at
// construction time.
func (f *PostgresFactory) NewStore() AnalyticalStore {
	return &PostgresStore{pool: f.pool}
}

// EnsureNamespace creates the backing schema for namespace if absent.
func (s *PostgresStore) EnsureNamespace(ctx context.Context, namespace string) error {
	schema := schemaName(namespace)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schema))
	return err
}

// Schema reports column names and types for viewName via Postgres'
// information_schema, since views here live in the public schema
// managed outside this module.
func (s *PostgresStore) Schema(ctx context.Context, viewName string) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`,
		viewName)
	if err != nil {
		return "", fmt.Errorf("query schema for view %q: %w", viewName, err)
	}
	defer rows.Close()

	var b []byte
	found := false
	for rows.Next() {
		var col, typ string
		if err := rows.Scan(&col, &typ); err != nil {
			return "", fmt.Errorf("scan schema row for view %q: %w", viewName, err)
		}
		found = true
		b = append(b, []byte(fmt.Sprintf("%s: %s\n", col, typ))...)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("view %q not found", viewName)
	}
	return string(b), nil
}

func (s *PostgresStore) ExecuteView(ctx context.Context, viewName, sql string) (Result, error) {
	// Views live in the public schema; they are managed outside this
	// module.
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return Result{}, fmt.Errorf("execute view %q: %w", viewName, err)
	}
	defer rows.Close()
	return collect(rows)
}

func (s *PostgresStore) CreateTable(ctx context.Context, namespace, ref string, rows []map[string]any) error {
	if err := s.EnsureNamespace(ctx, namespace); err != nil {
		return err
	}
	schema := schemaName(namespace)
	table := fmt.Sprintf("%q.%q", schema, ref)

	if len(rows) == 0 {
		_, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (placeholder jsonb)`, table))
		return err
	}

	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	colDefs := ""
	for i, c := range cols {
		if i > 0 {
			colDefs += ", "
		}
		colDefs += fmt.Sprintf("%q jsonb", c)
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, table, colDefs)); err != nil {
		return fmt.Errorf("create scratch table %s: %w", table, err)
	}

	batch := &pgx.Batch{}
	placeholders := ""
	quotedCols := ""
	for i, c := range cols {
		if i > 0 {
			placeholders += ", "
			quotedCols += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		quotedCols += fmt.Sprintf("%q", c)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, quotedCols, placeholders)
	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = row[c]
		}
		batch.Queue(insert, args...)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert into scratch table %s: %w", table, err)
		}
	}
	return nil
}

func (s *PostgresStore) Execute(ctx context.Context, namespace, sql string) (Result, error) {
	schema := schemaName(namespace)
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// search_path scopes the bare table names scratch queries use to
	// this thread's schema; RESET before release so the pooled
	// connection carries no thread's namespace into its next checkout.
	if _, err := conn.Exec(ctx, fmt.Sprintf(`SET search_path TO %q`, schema)); err != nil {
		return Result{}, fmt.Errorf("set search_path: %w", err)
	}
	defer func() { _, _ = conn.Exec(context.Background(), `RESET search_path`) }()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return Result{}, fmt.Errorf("execute scratch query: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (s *PostgresStore) DropNamespace(ctx context.Context, namespace string) error {
	schema := schemaName(namespace)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q CASCADE`, schema))
	return err
}

func schemaName(namespace string) string {
	// Postgres identifiers cannot contain ':' or '/'; the thread state
	// registry's namespace strings use both as separators.
	out := make([]rune, 0, len(namespace))
	for _, r := range namespace {
		if r == ':' || r == '/' || r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return "scratch_" + string(out)
}

func collect(rows pgx.Rows) (Result, error) {
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f.Name)
	}
	var out Result
	out.Columns = cols
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return Result{}, err
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, rows.Err()
}
