package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// compressThreshold is the size above which values are stored zstd-compressed.
const compressThreshold = 512

const (
	encodingRaw  = "raw"
	encodingZstd = "zstd"
)

// Get returns the value stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value    []byte
		encoding string
	)
	err := db.conn.QueryRowContext(ctx, "SELECT value, encoding FROM kv WHERE key = ?", key).Scan(&value, &encoding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if encoding == encodingZstd {
		out, err := db.dec.DecodeAll(value, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", key, err)
		}
		return out, nil
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	data, encoding := value, encodingRaw
	if len(value) > compressThreshold {
		data, encoding = db.enc.EncodeAll(value, nil), encodingZstd
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO kv(key, value, encoding, size, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value, encoding = excluded.encoding,
			size = excluded.size, updated_at = excluded.updated_at`,
		key, data, encoding, len(value), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys starting with prefix, sorted.
func (db *DB) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
