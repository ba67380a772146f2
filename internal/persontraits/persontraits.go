// Package persontraits implements the read-only, initialization-only
// person-trait database collaborator spec.md §9's Design Notes call for:
// "make it an injected collaborator with an interface fetch(query) ->
// stream<row> so the core can be tested against an in-memory fake." No
// Postgres driver exists anywhere in the example pack this module draws
// from, so the on-disk implementation below reuses the teacher's own
// database/sql + mattn/go-sqlite3 stack (logger.go's OpenSQLiteDB) instead
// of fabricating one; see DESIGN.md.
package persontraits

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Row is one person-trait record: a node id plus its named field values.
type Row struct {
	NodeID int64
	Fields map[string]any
}

// Fetcher is the injected collaborator spec.md §9 names: fetch(query) ->
// stream<row>. Rows is called once per personTraitDB entry during
// initialization only.
type Fetcher interface {
	Rows(ctx context.Context, query string) ([]Row, error)
}

// MemoryFetcher is the in-memory fake used to test the core without a
// database (spec.md §9 "tested against an in-memory fake").
type MemoryFetcher struct {
	rows []Row
}

// NewMemoryFetcher returns a fake backed by rows, ignoring query entirely.
func NewMemoryFetcher(rows []Row) *MemoryFetcher {
	return &MemoryFetcher{rows: rows}
}

func (f *MemoryFetcher) Rows(ctx context.Context, query string) ([]Row, error) {
	return f.rows, nil
}

// RetryPolicy configures the capped exponential backoff with randomized
// jitter spec.md §5 requires for database connection failures ("Database
// connections retry with capped exponential back-off and randomized
// jitter").
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy matches the run-parameter defaults named in spec.md
// §6 (dbConnectionRetries, dbConnectionMaxDelay).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) + 1))
	return d/2 + jitter/2
}

// SQLiteFetcher is the on-disk implementation, backed by
// database/sql + mattn/go-sqlite3, with retrying connect semantics (spec.md
// §5, §7 "Database connection failures retry up to a configured limit
// with bounded randomized delay before becoming fatal").
type SQLiteFetcher struct {
	db *sql.DB
}

// OpenSQLiteFetcher connects to path, retrying per policy before giving up
// (spec.md §7).
func OpenSQLiteFetcher(path string, policy RetryPolicy) (*SQLiteFetcher, error) {
	dsn := fmt.Sprintf("file:%s?_journal=WAL&mode=ro", path)
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		db, err := sql.Open("sqlite3", dsn)
		if err == nil {
			if pingErr := db.Ping(); pingErr == nil {
				return &SQLiteFetcher{db: db}, nil
			} else {
				lastErr = pingErr
				db.Close()
			}
		} else {
			lastErr = err
		}
		if attempt < policy.MaxRetries {
			time.Sleep(policy.delay(attempt))
		}
	}
	return nil, errors.Wrapf(lastErr, "persontraits: connect to %s after %d retries", path, policy.MaxRetries)
}

// Rows runs query and scans every returned column into Row.Fields, with
// the first column treated as the node id.
func (f *SQLiteFetcher) Rows(ctx context.Context, query string) ([]Row, error) {
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "persontraits: query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := Row{Fields: make(map[string]any, len(cols)-1)}
		for i, col := range cols {
			if i == 0 {
				if id, ok := values[0].(int64); ok {
					row.NodeID = id
				}
				continue
			}
			row.Fields[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close releases the underlying connection.
func (f *SQLiteFetcher) Close() error {
	return f.db.Close()
}
