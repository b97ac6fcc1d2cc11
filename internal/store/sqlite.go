package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/places-ingest/internal/db"
	"github.com/sells-group/places-ingest/internal/model"
)

var sqliteDialect = func() *dialect {
	d := newDialect("sqlite", db.Question, func(raw json.RawMessage) any { return string(raw) })
	d.ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	filename   TEXT NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
)`
	return d
}()

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied by the driver to every new connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// sqliteDSN appends the connection pragmas to dsn as _pragma parameters,
// leaving any pragma the caller already set.
func sqliteDSN(dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		name := p[:strings.IndexByte(p, '(')]
		if strings.Contains(dsn, "_pragma="+name+"(") {
			continue
		}
		params = append(params, "_pragma="+p)
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// NewSQLite opens a SQLite database at the given path in WAL mode with
// foreign keys enforced. The pool is capped at one connection so units of
// work serialize.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: connect")
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: migrate: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := migrate(ctx, sqliteDialect, sqliteTx{sqliteConn{tx}, tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: migrate: commit")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Begin(ctx context.Context) (Unit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	return &unit{d: sqliteDialect, tx: sqliteTx{sqliteConn{tx}, tx}}, nil
}

func (s *SQLiteStore) GetPlace(ctx context.Context, placeID string) (*model.PlaceDetail, error) {
	return getPlace(ctx, sqliteConn{s.db}, sqliteDialect, placeID)
}

// sqlConn is satisfied by both *sql.DB and *sql.Tx.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteConn struct {
	c sqlConn
}

func (c sqliteConn) exec(ctx context.Context, query string, args ...any) error {
	_, err := c.c.ExecContext(ctx, query, args...)
	return err
}

func (c sqliteConn) queryRow(ctx context.Context, query string, args ...any) scannable {
	return c.c.QueryRowContext(ctx, query, args...)
}

func (c sqliteConn) query(ctx context.Context, query string, args ...any) (rowIter, error) {
	rows, err := c.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}

type sqliteTx struct {
	sqliteConn
	tx *sql.Tx
}

func (t sqliteTx) commit(context.Context) error {
	return t.tx.Commit()
}

func (t sqliteTx) rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
