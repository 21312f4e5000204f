package source

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig configures a SQLite-backed source.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:" for an in-memory
	// database.
	Path string

	// Query is the SELECT statement producing the item set. Its columns
	// become record fields.
	Query string

	// Table is the table targeted by the write helpers.
	Table string

	// IDColumn names the identity column. Defaults to "id". When Query does
	// not select it, the first selected column serves as the identity.
	IDColumn string

	// Predicate is an optional extra membership predicate evaluated on
	// records. Nil admits everything the query returns.
	Predicate func(Record) bool
}

// SQLite executes a configured query against a SQLite database and publishes
// a change batch for every row written through its helpers. Rows created
// without an explicit identity get a generated UUID.
//
// The connection pool is limited to a single connection: SQLite supports one
// writer at a time and a second connection only manufactures SQLITE_BUSY
// errors.
type SQLite struct {
	db  *sql.DB
	cfg SQLiteConfig

	mu      sync.Mutex
	subs    map[int]func(Batch)
	nextSub int
}

// OpenSQLite opens (or creates) the database and applies the required
// pragmas. Idempotent: safe to call on an existing database.
func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Query == "" {
		return nil, fmt.Errorf("source: sqlite config requires a query")
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &SQLite{db: db, cfg: cfg, subs: make(map[int]func(Batch))}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle, for schema setup in tests and tooling.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Execute runs the configured query and returns the current record set.
func (s *SQLite) Execute(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := Record{Fields: make(map[string]any, len(columns))}
		for i, col := range columns {
			rec.Fields[col] = normalizeValue(values[i])
		}
		rec.ID = s.recordID(rec, columns)

		if s.cfg.Predicate == nil || s.cfg.Predicate(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Matches reports whether a record satisfies the configured predicate.
func (s *SQLite) Matches(r Record) bool {
	return s.cfg.Predicate == nil || s.cfg.Predicate(r)
}

// Subscribe registers fn for batches published by the write helpers.
func (s *SQLite) Subscribe(fn func(Batch)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return &sqliteSubscription{source: s, id: id}, nil
}

// InsertRow writes a row and publishes a create notification. A missing or
// empty identity field gets a generated UUID.
func (s *SQLite) InsertRow(ctx context.Context, fields map[string]any) (Record, error) {
	rec := Record{Fields: make(map[string]any, len(fields)+1)}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	id, _ := rec.Fields[s.cfg.IDColumn].(string)
	if id == "" {
		id = uuid.NewString()
		rec.Fields[s.cfg.IDColumn] = id
	}
	rec.ID = id

	cols := sortedKeys(rec.Fields)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = rec.Fields[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.cfg.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Record{}, fmt.Errorf("insert row: %w", err)
	}

	s.publish(Batch{{Action: ActionCreate, Item: rec.Clone()}})
	return rec, nil
}

// UpdateRow updates a row by identity and publishes an update notification
// carrying the post-update snapshot.
func (s *SQLite) UpdateRow(ctx context.Context, id string, fields map[string]any) (Record, error) {
	cols := sortedKeys(fields)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, fields[c])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		s.cfg.Table, strings.Join(sets, ", "), s.cfg.IDColumn)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Record{}, fmt.Errorf("update row: %w", err)
	}

	rec, err := s.fetchRow(ctx, id)
	if err != nil {
		return Record{}, err
	}

	s.publish(Batch{{Action: ActionUpdate, Item: rec.Clone()}})
	return rec, nil
}

// DeleteRow deletes a row by identity and publishes a delete notification.
// Deleting an absent row still publishes: the consumer treats unknown
// deletions as no-ops.
func (s *SQLite) DeleteRow(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.cfg.Table, s.cfg.IDColumn)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}

	s.publish(Batch{{Action: ActionDelete, Item: Record{
		ID:     id,
		Fields: map[string]any{s.cfg.IDColumn: id},
	}}})
	return nil
}

func (s *SQLite) fetchRow(ctx context.Context, id string) (Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", s.cfg.Table, s.cfg.IDColumn)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return Record{}, fmt.Errorf("fetch row: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Record{}, fmt.Errorf("get columns: %w", err)
	}
	if !rows.Next() {
		return Record{}, fmt.Errorf("row %s not found", id)
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return Record{}, fmt.Errorf("scan row: %w", err)
	}

	rec := Record{Fields: make(map[string]any, len(columns))}
	for i, col := range columns {
		rec.Fields[col] = normalizeValue(values[i])
	}
	rec.ID = s.recordID(rec, columns)
	return rec, nil
}

func (s *SQLite) recordID(rec Record, columns []string) string {
	if v, ok := rec.Fields[s.cfg.IDColumn]; ok {
		return ValueString(v)
	}
	if len(columns) > 0 {
		return ValueString(rec.Fields[columns[0]])
	}
	return ""
}

func (s *SQLite) publish(batch Batch) {
	s.mu.Lock()
	fns := make([]func(Batch), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}

// normalizeValue maps driver values onto the small set of field types the
// comparison helpers understand.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type sqliteSubscription struct {
	source *SQLite
	once   sync.Once
	id     int
}

// Close removes the subscriber. Idempotent.
func (s *sqliteSubscription) Close() error {
	s.once.Do(func() {
		s.source.mu.Lock()
		delete(s.source.subs, s.id)
		s.source.mu.Unlock()
	})
	return nil
}
