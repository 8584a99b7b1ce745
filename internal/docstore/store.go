// Package docstore provides the path-addressable hierarchical document
// store backing the curation data. Each top-level record (a collection name
// plus a gene symbol, like "Genes/BRAF") is one Redis value holding the
// record's JSON; deeper path segments navigate inside that JSON. Multi-path
// patches are applied atomically with optimistic locking across every
// record they touch.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"genekb/api/internal/util"
)

// ErrNotFound is returned when a path resolves to nothing.
var ErrNotFound = errors.New("docstore: not found")

// txRetries bounds optimistic-lock retries before a patch is reported
// failed to the caller.
const txRetries = 8

// Store is a Redis-backed document store.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a store from a Redis URL and verifies connectivity.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, prefix: "doc:"}, nil
}

// NewWithClient creates a store from an existing Redis client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "doc:"}
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

// Ping verifies the Redis connection, for readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// splitPath separates a store path into its record key and the segments
// inside the record. "Genes/BRAF/mutations/0" -> ("Genes/BRAF",
// ["mutations","0"]).
func splitPath(path string) (record string, segments []string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, fmt.Errorf("docstore: path %q lacks a collection/record prefix", path)
	}
	return parts[0] + "/" + parts[1], parts[2:], nil
}

func (s *Store) key(record string) string { return s.prefix + record }

// Get reads the JSON subtree at path. Returns ErrNotFound when the record
// or the inner path does not exist.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	record, segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, s.key(record)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", record, err)
	}
	if len(segments) == 0 {
		return raw, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", record, err)
	}
	sub, ok := getPath(doc, segments)
	if !ok {
		return nil, ErrNotFound
	}
	out, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return out, nil
}

// GetInto reads the subtree at path and decodes it into dst.
func (s *Store) GetInto(ctx context.Context, path string, dst any) error {
	raw, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Set replaces the subtree at path with value.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Delete removes the subtree at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.Update(ctx, map[string]any{path: nil})
}

// PushKey returns a fresh child key that sorts after every previously
// generated key, for append-only lists stored as maps.
func (s *Store) PushKey(path string) string { return util.NewPushKey() }

// Update applies a multi-path patch atomically. A nil value deletes its
// path; deleting a numeric segment removes the array element. The patch
// either fully applies or, after exhausting optimistic-lock retries, fails
// with every touched record unchanged.
func (s *Store) Update(ctx context.Context, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	// Group inner edits per record so each record is read and written once.
	type edit struct {
		segments []string
		value    any
	}
	edits := make(map[string][]edit)
	for path, value := range patch {
		record, segments, err := splitPath(path)
		if err != nil {
			return err
		}
		edits[record] = append(edits[record], edit{segments: segments, value: value})
	}
	records := make([]string, 0, len(edits))
	keys := make([]string, 0, len(edits))
	for record := range edits {
		records = append(records, record)
		keys = append(keys, s.key(record))
	}
	sort.Strings(records)

	apply := func(tx *redis.Tx) error {
		out := make(map[string][]byte, len(records))
		deletes := make([]string, 0)
		for _, record := range records {
			var doc any
			raw, err := tx.Get(ctx, s.key(record)).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				doc = nil
			case err != nil:
				return fmt.Errorf("get %s: %w", record, err)
			default:
				if err := json.Unmarshal(raw, &doc); err != nil {
					return fmt.Errorf("decode %s: %w", record, err)
				}
			}
			for _, e := range edits[record] {
				if doc, err = applyEdit(doc, e.segments, e.value); err != nil {
					return fmt.Errorf("patch %s/%s: %w", record, strings.Join(e.segments, "/"), err)
				}
			}
			if doc == nil {
				deletes = append(deletes, s.key(record))
				continue
			}
			enc, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode %s: %w", record, err)
			}
			out[s.key(record)] = enc
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, enc := range out {
				pipe.Set(ctx, key, enc, 0)
			}
			for _, key := range deletes {
				pipe.Del(ctx, key)
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < txRetries; i++ {
		err = s.client.Watch(ctx, apply, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// DeleteFromArray removes the given indices from the array at path in one
// atomic operation. Indices refer to the array as currently stored.
func (s *Store) DeleteFromArray(ctx context.Context, path string, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	record, segments, err := splitPath(path)
	if err != nil {
		return err
	}
	key := s.key(record)

	apply := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", record, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", record, err)
		}
		sub, ok := getPath(doc, segments)
		if !ok {
			return ErrNotFound
		}
		arr, ok := sub.([]any)
		if !ok {
			return fmt.Errorf("docstore: %s is not an array", path)
		}
		drop := make(map[int]bool, len(indices))
		for _, i := range indices {
			drop[i] = true
		}
		kept := make([]any, 0, len(arr))
		for i, v := range arr {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		if doc, err = applyEdit(doc, segments, kept); err != nil {
			return fmt.Errorf("patch %s: %w", path, err)
		}
		enc, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", record, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err = s.client.Watch(ctx, apply, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete from array: %w", err)
	}
	return err
}

// ListRecords returns the record names in a collection, e.g. every
// "Genes/<symbol>" as the bare symbol.
func (s *Store) ListRecords(ctx context.Context, collection string) ([]string, error) {
	pattern := s.prefix + collection + "/*"
	var (
		cursor  uint64
		symbols []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		for _, key := range keys {
			symbols = append(symbols, strings.TrimPrefix(key, s.prefix+collection+"/"))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
