// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/newsgate/rpc/binstream"
)

const schema = `
CREATE TABLE IF NOT EXISTS moderation_change_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at     INTEGER NOT NULL,
	type           INTEGER NOT NULL,
	subtype        INTEGER NOT NULL,
	ip             TEXT    NOT NULL,
	moderator      INTEGER NOT NULL,
	moderator_name TEXT    NOT NULL,
	url            TEXT    NOT NULL,
	summary        TEXT    NOT NULL,
	details        TEXT    NOT NULL,
	data           BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS moderation_change_log_moderator
	ON moderation_change_log (moderator, created_at);
`

// Persist inserts e into the change log on conn and returns the row id.
// The data column holds e's binary encoding so the entry can be rebuilt.
func Persist(conn *sqlite.Conn, e Entry, at time.Time) (int64, error) {
	data, err := binstream.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("moderation: encode %s: %w", e.Type(), err)
	}

	author := e.Author()
	err = sqlitex.Execute(conn,
		`INSERT INTO moderation_change_log
			(created_at, type, subtype, ip, moderator, moderator_name, url, summary, details, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				at.UnixNano(),
				int64(e.Type()),
				int64(e.Subtype()),
				author.IP,
				int64(author.ModeratorID),
				author.ModeratorName,
				e.URL(),
				e.Summary(),
				e.Details(),
				data,
			},
		})
	if err != nil {
		return 0, fmt.Errorf("moderation: insert %s: %w", e.Type(), err)
	}
	return conn.LastInsertRowID(), nil
}

// Record is one stored change log row.
type Record struct {
	ID            int64
	Time          time.Time
	Type          Type
	Subtype       uint32
	IP            string
	ModeratorID   uint64
	ModeratorName string
	URL           string
	Summary       string
	Details       string
	Data          []byte
}

// Entry rebuilds the change from its stored encoding. Rows written by a
// build with another change layout fail with binstream.ErrVersionMismatch.
func (r *Record) Entry() (Entry, error) {
	e, err := newEntry(r.Type)
	if err != nil {
		return nil, err
	}
	if err := binstream.Unmarshal(r.Data, e); err != nil {
		return nil, fmt.Errorf("moderation: record %d: %w", r.ID, err)
	}
	return e, nil
}

// Query filters List. Zero values match everything; Limit 0 means 100.
type Query struct {
	ModeratorID uint64
	Type        *Type
	Since       time.Time
	Limit       int
}

// LogConfig configures Open.
type LogConfig struct {
	Path     string
	PoolSize int
	Logger   zerolog.Logger
}

// Log is the moderation change log backed by a pooled SQLite database.
type Log struct {
	pool *sqlitex.Pool
	log  zerolog.Logger
	now  func() time.Time
}

// Open opens (creating when needed) the change log at cfg.Path.
func Open(cfg LogConfig) (*Log, error) {
	if cfg.Path == "" {
		return nil, errors.New("moderation: path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("moderation: opening %s: %w", cfg.Path, err)
	}

	cfg.Logger.Info().Str("path", cfg.Path).Int("pool_size", poolSize).Msg("moderation log opened")
	return &Log{pool: pool, log: cfg.Logger, now: time.Now}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("moderation: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("moderation: schema: %w", err)
	}
	return nil
}

// Append persists entries in one transaction and returns their row ids.
func (l *Log) Append(ctx context.Context, entries ...Entry) (ids []int64, err error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("moderation: take: %w", err)
	}
	defer l.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("moderation: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	at := l.now()
	ids = make([]int64, 0, len(entries))
	for _, e := range entries {
		id, err := Persist(conn, e, at)
		if err != nil {
			return nil, err
		}
		l.log.Debug().Int64("id", id).Stringer("type", e.Type()).Uint64("moderator", e.Author().ModeratorID).Msg("change logged")
		ids = append(ids, id)
	}
	return ids, nil
}

// List returns matching records, newest first.
func (l *Log) List(ctx context.Context, q Query) ([]Record, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("moderation: take: %w", err)
	}
	defer l.pool.Put(conn)

	query := `SELECT id, created_at, type, subtype, ip, moderator, moderator_name, url, summary, details, data
		FROM moderation_change_log WHERE 1=1`
	var args []any
	if q.ModeratorID != 0 {
		query += " AND moderator = ?"
		args = append(args, int64(q.ModeratorID))
	}
	if q.Type != nil {
		query += " AND type = ?"
		args = append(args, int64(*q.Type))
	}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UnixNano())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var records []Record
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rec := Record{
				ID:            stmt.ColumnInt64(0),
				Time:          time.Unix(0, stmt.ColumnInt64(1)),
				Type:          Type(stmt.ColumnInt64(2)),
				Subtype:       uint32(stmt.ColumnInt64(3)),
				IP:            stmt.ColumnText(4),
				ModeratorID:   uint64(stmt.ColumnInt64(5)),
				ModeratorName: stmt.ColumnText(6),
				URL:           stmt.ColumnText(7),
				Summary:       stmt.ColumnText(8),
				Details:       stmt.ColumnText(9),
				Data:          make([]byte, stmt.ColumnLen(10)),
			}
			stmt.ColumnBytes(10, rec.Data)
			records = append(records, rec)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("moderation: list: %w", err)
	}
	return records, nil
}

// Close closes the pool. It blocks until borrowed connections return.
func (l *Log) Close() error {
	if err := l.pool.Close(); err != nil {
		return fmt.Errorf("moderation: close: %w", err)
	}
	return nil
}
