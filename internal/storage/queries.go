package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// QueryRaw runs an arbitrary read query and returns column names and every
// row rendered as strings. NULL renders as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}
	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// PrefixStats summarises the keys sharing one naming prefix.
type PrefixStats struct {
	Prefix     string
	Keys       int
	Size       int64 // uncompressed bytes
	StoredSize int64
}

// Overview summarises the whole store.
type Overview struct {
	TotalKeys   int
	TotalSize   int64
	StoredSize  int64
	Compressed  int
	LastUpdated time.Time
	Prefixes    []PrefixStats
}

// GetOverview returns per-prefix key counts and sizes. The prefix of a key is
// the part before its first '-'.
func (db *DB) GetOverview(ctx context.Context) (*Overview, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT key, encoding, size, length(value), updated_at FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	defer rows.Close()

	ov := &Overview{}
	index := map[string]int{}
	var last int64
	for rows.Next() {
		var (
			key, encoding string
			size, stored  int64
			updated       int64
		)
		if err := rows.Scan(&key, &encoding, &size, &stored, &updated); err != nil {
			return nil, fmt.Errorf("overview scan: %w", err)
		}
		prefix, _, _ := strings.Cut(key, "-")
		i, ok := index[prefix]
		if !ok {
			i = len(ov.Prefixes)
			index[prefix] = i
			ov.Prefixes = append(ov.Prefixes, PrefixStats{Prefix: prefix})
		}
		ov.Prefixes[i].Keys++
		ov.Prefixes[i].Size += size
		ov.Prefixes[i].StoredSize += stored

		ov.TotalKeys++
		ov.TotalSize += size
		ov.StoredSize += stored
		if encoding == encodingZstd {
			ov.Compressed++
		}
		if updated > last {
			last = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if last > 0 {
		ov.LastUpdated = time.UnixMilli(last)
	}
	return ov, nil
}
