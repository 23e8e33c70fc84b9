package querymount

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// MapStore is an in-memory RecordStore used by tests and small static
// views. The filter is a substring match against the rendered record; an
// empty filter matches everything.
type MapStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMapStore builds a store from id -> content.
func NewMapStore(records map[string][]byte) *MapStore {
	copied := make(map[string][]byte, len(records))
	for k, v := range records {
		copied[k] = append([]byte(nil), v...)
	}
	return &MapStore{records: copied}
}

func (s *MapStore) Query(filter string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id, content := range s.records {
		if filter == "" || containsFold(string(content), filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MapStore) QueryOne(filter, id string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	if filter != "" && !containsFold(string(content), filter) {
		return nil, false, nil
	}
	return append([]byte(nil), content...), true, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// SQLiteStore is a RecordStore backed by one sqlite table. The filter is a
// WHERE clause fragment evaluated by the database; record content is the
// full row rendered as JSON.
type SQLiteStore struct {
	db    *sql.DB
	table string
	idCol string
}

// OpenSQLite opens (or creates) a sqlite database and binds the store to a
// table and its id column.
func OpenSQLite(dsn, table, idCol string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dsn, err)
	}
	return &SQLiteStore{db: db, table: table, idCol: idCol}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Query(filter string, limit int) ([]string, error) {
	q := fmt.Sprintf("SELECT %s FROM %s", s.idCol, s.table) // #nosec G201 -- table/column fixed at construction
	if filter != "" {
		q += " WHERE " + filter
	}
	q += fmt.Sprintf(" ORDER BY %s LIMIT %d", s.idCol, limit)
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) QueryOne(filter, id string) ([]byte, bool, error) {
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", s.table, s.idCol) // #nosec G201
	if filter != "" {
		q += " AND (" + filter + ")"
	}
	rows, err := s.db.Query(q, id)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, false, err
	}
	record := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			record[col] = string(b)
		} else {
			record[col] = values[i]
		}
	}
	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, false, err
	}
	return append(content, '\n'), true, nil
}
