package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the journal database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection also keeps
	// ":memory:" databases shared
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS journal (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			trip_id     TEXT,
			seq         BIGINT,
			time_ns     BIGINT,
			kind        TEXT,
			signal      TEXT,
			mode        TEXT,
			target      TEXT,
			agent_row   INTEGER,
			agent_col   INTEGER,
			intent      TEXT,
			message     TEXT
		)
	`)
	if err == nil {
		_, err = db.Exec(`CREATE INDEX IF NOT EXISTS journal_trip ON journal (trip_id)`)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (trip_id, seq, time_ns, kind, signal, mode, target, agent_row, agent_col, intent, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TripID, e.Seq, e.Time.UnixNano(), e.Kind, e.Signal, e.Mode, e.Target, e.Row, e.Col, e.Intent, e.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()

	var where []string
	var args []interface{}
	if q.TripID != "" {
		where = append(where, "trip_id = ?")
		args = append(args, q.TripID)
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal"+clause, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("failed to count entries: %w", err)
	}

	order := "DESC"
	if q.Order == "asc" {
		order = "ASC"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, seq, time_ns, kind, signal, mode, target, agent_row, agent_col, intent, message
		FROM journal`+clause+` ORDER BY id `+order+` LIMIT ? OFFSET ?`,
		append(args, q.Limit, (q.Page-1)*q.Limit)...,
	)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.ID, &e.TripID, &e.Seq, &ns, &e.Kind, &e.Signal, &e.Mode, &e.Target, &e.Row, &e.Col, &e.Intent, &e.Message); err != nil {
			return Page{}, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Time = time.Unix(0, ns).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return newPage(entries, total, q), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
