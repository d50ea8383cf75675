package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go driver, registers "sqlite"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

const defaultTable = "webstalk_frontier"

// SQLStore is the embedded-SQL Store backend (§4.3, §6): a single table
// mirroring Request fields, queries/headers/attrs serialized as JSON,
// data as BLOB, state as its string literal. Get selects-then-marks-
// EXECUTING inside one transaction to prevent double dispatch.
type SQLStore struct {
	db    *sql.DB
	table string
}

// NewSQLStore opens (or creates) a SQLite database at dsn and ensures the
// frontier table, its priority index, and crash-recovery reset exist. An
// empty table name defaults to "webstalk_frontier" (§6).
func NewSQLStore(dsn string, table string) (*SQLStore, error) {
	if table == "" {
		table = defaultTable
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &types.StoreError{Backend: "sqlite", Op: "open", Err: err}
	}
	// The dispatcher is the only caller of any mutating Store method, so a
	// single connection is enough and avoids SQLite's writer-lock contention.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, table: table}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		url TEXT,
		method TEXT,
		priority INTEGER,
		repeatable INTEGER,
		parent TEXT,
		data BLOB,
		queries TEXT,
		headers TEXT,
		attrs TEXT,
		state TEXT,
		depth INTEGER,
		msg TEXT,
		inherit INTEGER
	)`, s.table)
	if _, err := s.db.Exec(schema); err != nil {
		return &types.StoreError{Backend: "sqlite", Op: "create_table", Err: err}
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_priority ON %s(priority)`, s.table, s.table)
	if _, err := s.db.Exec(index); err != nil {
		return &types.StoreError{Backend: "sqlite", Op: "create_index", Err: err}
	}

	// Crash recovery: any row left EXECUTING from a prior process resets to
	// WAITING (§4.3).
	recover := fmt.Sprintf(`UPDATE %s SET state = 'WAITING', msg = 'recovered after restart' WHERE state = 'EXECUTING'`, s.table)
	if _, err := s.db.Exec(recover); err != nil {
		return &types.StoreError{Backend: "sqlite", Op: "recover", Err: err}
	}
	return nil
}

func (s *SQLStore) Put(r *types.Request) (bool, error) {
	queries, err := json.Marshal(r.Queries)
	if err != nil {
		return false, &types.StoreError{Backend: "sqlite", Op: "put", Err: err}
	}
	headers, err := json.Marshal(r.Headers)
	if err != nil {
		return false, &types.StoreError{Backend: "sqlite", Op: "put", Err: err}
	}
	attrs, err := json.Marshal(r.Attrs)
	if err != nil {
		return false, &types.StoreError{Backend: "sqlite", Op: "put", Err: err}
	}

	r.State = types.StateWaiting
	r.Msg = "waiting"

	q := fmt.Sprintf(`INSERT INTO %s
		(id, url, method, priority, repeatable, parent, data, queries, headers, attrs, state, depth, msg, inherit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url, method = excluded.method, priority = excluded.priority,
			repeatable = excluded.repeatable, parent = excluded.parent, data = excluded.data,
			queries = excluded.queries, headers = excluded.headers, attrs = excluded.attrs,
			state = excluded.state, depth = excluded.depth, msg = excluded.msg, inherit = excluded.inherit`, s.table)

	_, err = s.db.Exec(q,
		r.ID, r.URL, r.Method, r.Priority, boolToInt(r.Repeatable), r.Parent, r.Data,
		string(queries), string(headers), string(attrs), string(r.State), r.Depth, r.Msg, boolToInt(r.Inherit),
	)
	if err != nil {
		return false, &types.StoreError{Backend: "sqlite", Op: "put", Err: err}
	}
	return true, nil
}

func (s *SQLStore) Get() (*types.Request, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, &types.StoreError{Backend: "sqlite", Op: "get", Err: err}
	}
	defer tx.Rollback()

	selectQ := fmt.Sprintf(`SELECT id, url, method, priority, repeatable, parent, data, queries, headers, attrs, state, depth, msg, inherit
		FROM %s WHERE state = 'WAITING' ORDER BY priority DESC LIMIT 1`, s.table)
	req, err := scanRequest(tx.QueryRow(selectQ))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if storeErr, ok := err.(*types.StoreError); ok {
		return nil, false, storeErr
	}
	if err != nil {
		return nil, false, &types.StoreError{Backend: "sqlite", Op: "get", Err: err}
	}

	updateQ := fmt.Sprintf(`UPDATE %s SET state = 'EXECUTING', msg = 'executing' WHERE id = ?`, s.table)
	if _, err := tx.Exec(updateQ, req.ID); err != nil {
		return nil, false, &types.StoreError{Backend: "sqlite", Op: "get", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, &types.StoreError{Backend: "sqlite", Op: "get", Err: err}
	}

	req.State = types.StateExecuting
	req.Msg = "executing"
	return req, true, nil
}

func (s *SQLStore) Exists(id string) (bool, error) {
	var count int
	q := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE id = ?`, s.table)
	if err := s.db.QueryRow(q, id).Scan(&count); err != nil {
		return false, &types.StoreError{Backend: "sqlite", Op: "exists", Err: err}
	}
	return count > 0, nil
}

func (s *SQLStore) UpdateState(id string, state types.RequestState, msg string) error {
	q := fmt.Sprintf(`UPDATE %s SET state = ?, msg = ? WHERE id = ?`, s.table)
	if _, err := s.db.Exec(q, string(state), msg, id); err != nil {
		return &types.StoreError{Backend: "sqlite", Op: "update_state", Err: err}
	}
	return nil
}

func (s *SQLStore) ReplyFailed() (int, error) {
	q := fmt.Sprintf(`UPDATE %s SET state = 'WAITING', msg = 'retrying' WHERE state = 'FAILED'`, s.table)
	res, err := s.db.Exec(q)
	if err != nil {
		return 0, &types.StoreError{Backend: "sqlite", Op: "reply_failed", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &types.StoreError{Backend: "sqlite", Op: "reply_failed", Err: err}
	}
	return int(n), nil
}

func (s *SQLStore) Statistics() (Statistics, error) {
	q := fmt.Sprintf(`SELECT
		COUNT(1),
		SUM(CASE WHEN state = 'WAITING' THEN 1 ELSE 0 END),
		SUM(CASE WHEN state = 'EXECUTING' THEN 1 ELSE 0 END),
		SUM(CASE WHEN state = 'COMPLETED' THEN 1 ELSE 0 END),
		SUM(CASE WHEN state = 'FAILED' THEN 1 ELSE 0 END)
		FROM %s`, s.table)

	var all int
	var waiting, executing, completed, failed sql.NullInt64
	if err := s.db.QueryRow(q).Scan(&all, &waiting, &executing, &completed, &failed); err != nil {
		return Statistics{}, &types.StoreError{Backend: "sqlite", Op: "statistics", Err: err}
	}
	return Statistics{
		All:       all,
		Waiting:   int(waiting.Int64),
		Executing: int(executing.Int64),
		Completed: int(completed.Int64),
		Failed:    int(failed.Int64),
	}, nil
}

func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return &types.StoreError{Backend: "sqlite", Op: "close", Err: err}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*types.Request, error) {
	var (
		id, urlStr, method, parent, state, msg string
		priority, depth                        int
		repeatableInt, inheritInt              int
		data                                    []byte
		queriesJSON, headersJSON, attrsJSON     string
	)
	if err := row.Scan(&id, &urlStr, &method, &priority, &repeatableInt, &parent, &data,
		&queriesJSON, &headersJSON, &attrsJSON, &state, &depth, &msg, &inheritInt); err != nil {
		return nil, err
	}

	var queries map[string][]string
	if err := json.Unmarshal([]byte(queriesJSON), &queries); err != nil {
		return nil, &types.StoreError{Backend: "sqlite", Op: "scan_queries", Err: err}
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
		return nil, &types.StoreError{Backend: "sqlite", Op: "scan_headers", Err: err}
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return nil, &types.StoreError{Backend: "sqlite", Op: "scan_attrs", Err: err}
	}

	return &types.Request{
		ID:         id,
		URL:        urlStr,
		Method:     method,
		Priority:   priority,
		Repeatable: repeatableInt != 0,
		Parent:     parent,
		Data:       data,
		Queries:    queries,
		Headers:    headers,
		Attrs:      attrs,
		State:      types.RequestState(state),
		Depth:      depth,
		Msg:        msg,
		Inherit:    inheritInt != 0,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
