package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

type SQLiteLedger struct {
	db    *sql.DB
	clock clock.PassiveClock
	log   *zap.Logger
}

func NewSQLiteLedger(path string, c clock.PassiveClock, log *zap.Logger) (*SQLiteLedger, error) {
	if c == nil {
		c = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	// One writer per process; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &Error{Op: "open", Err: err}
	}

	l := &SQLiteLedger{db: db, clock: c, log: log.Named("ledger")}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS issues (
			id TEXT PRIMARY KEY,
			key_thumbprint TEXT NOT NULL,
			subject TEXT,
			expires_at INTEGER,
			claim_names TEXT,
			token_hash TEXT NOT NULL,
			issued_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_key ON issues(key_thumbprint);`,
	}

	for _, q := range queries {
		if _, err := l.db.Exec(q); err != nil {
			return &Error{Op: "create schema", Err: err}
		}
	}
	return nil
}

// Record stores is, assigning its ID and IssuedAt.
func (l *SQLiteLedger) Record(ctx context.Context, is Issue) (Issue, error) {
	is.ID = uuid.NewString()
	is.IssuedAt = l.clock.Now().UTC()

	names, err := json.Marshal(is.ClaimNames)
	if err != nil {
		return Issue{}, &Error{Op: "record", Err: err}
	}

	var expires sql.NullInt64
	if is.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: is.ExpiresAt.Unix(), Valid: true}
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO issues (id, key_thumbprint, subject, expires_at, claim_names, token_hash, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		is.ID, is.KeyThumbprint, is.Subject, expires, string(names), is.TokenHash, is.IssuedAt.UnixNano())
	if err != nil {
		return Issue{}, &Error{Op: "record", Err: err}
	}

	l.log.Info("recorded token",
		zap.String("id", is.ID),
		zap.String("key", is.KeyThumbprint),
		zap.String("subject", is.Subject))
	return is, nil
}

// List returns every recorded issue, newest first.
func (l *SQLiteLedger) List(ctx context.Context) ([]Issue, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, key_thumbprint, subject, expires_at, claim_names, token_hash, issued_at
		FROM issues ORDER BY issued_at DESC, id`)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		var (
			is       Issue
			subject  sql.NullString
			expires  sql.NullInt64
			names    sql.NullString
			issuedAt int64
		)
		if err := rows.Scan(&is.ID, &is.KeyThumbprint, &subject, &expires, &names, &is.TokenHash, &issuedAt); err != nil {
			return nil, &Error{Op: "list", Err: err}
		}
		is.Subject = subject.String
		if expires.Valid {
			t := time.Unix(expires.Int64, 0).UTC()
			is.ExpiresAt = &t
		}
		if names.Valid {
			if err := json.Unmarshal([]byte(names.String), &is.ClaimNames); err != nil {
				return nil, &Error{Op: "list", Err: err}
			}
		}
		is.IssuedAt = time.Unix(0, issuedAt).UTC()
		out = append(out, is)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	return out, nil
}

func (l *SQLiteLedger) CountByKey(ctx context.Context, keyThumbprint string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE key_thumbprint = ?`, keyThumbprint).Scan(&count)
	if err != nil {
		return 0, &Error{Op: "count", Err: err}
	}
	return count, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

var _ Ledger = (*SQLiteLedger)(nil)
