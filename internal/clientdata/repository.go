// Package clientdata provides a persistent flat-file cache for remote registry
// downloads. Each entry is a msgpack envelope holding the payload and its
// expiration timestamp, so a fresh entry can be served without a network call
// and a stale one can still be used when the source is unavailable.
package clientdata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheMiss is returned when no entry exists for a key
var ErrCacheMiss = errors.New("cache miss")

const fileExt = ".msgpack"

// envelope is the on-disk entry
type envelope struct {
	Key       string    `msgpack:"key"`
	StoredAt  time.Time `msgpack:"stored_at"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	Data      []byte    `msgpack:"data"`
}

// Entry describes a cached payload without decoding it
type Entry struct {
	Key       string
	Path      string
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry has not expired at now
func (e Entry) Fresh(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// Repository provides cache operations over a directory.
type Repository struct {
	dir    string
	prefix string
	now    func() time.Time
}

// NewRepository creates a cache rooted at dir. Files are named
// <prefix>-<hash of key>.msgpack.
func NewRepository(dir, prefix string) *Repository {
	return &Repository{dir: dir, prefix: prefix, now: time.Now}
}

// Dir returns the cache directory
func (r *Repository) Dir() string {
	return r.dir
}

// PathFor returns the file a key is stored in
func (r *Repository) PathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(r.dir, r.prefix+"-"+hex.EncodeToString(sum[:])[:16]+fileExt)
}

// Store saves data with expiration = now + ttl.
// The file is written to a temporary name and renamed into place so a
// crashed run never leaves a truncated entry behind.
func (r *Repository) Store(key string, data interface{}, ttl time.Duration) error {
	if ttl < TTLMinimum {
		ttl = TTLMinimum
	}

	payload, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	now := r.now().UTC()
	raw, err := msgpack.Marshal(envelope{
		Key:       key,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, r.prefix+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, r.PathFor(key)); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// GetIfFresh decodes the entry into out only if it has not expired.
// Returns ErrCacheMiss when the key doesn't exist or the entry is expired.
// Use Get() to retrieve stale data as a fallback when a download fails.
func (r *Repository) GetIfFresh(key string, out interface{}) (Entry, error) {
	env, entry, err := r.read(key)
	if err != nil {
		return Entry{}, err
	}
	if !entry.Fresh(r.now()) {
		return entry, ErrCacheMiss
	}
	return entry, decode(env, out)
}

// Get decodes the entry into out regardless of expiration status.
// Stale data is better than no data.
func (r *Repository) Get(key string, out interface{}) (Entry, error) {
	env, entry, err := r.read(key)
	if err != nil {
		return Entry{}, err
	}
	return entry, decode(env, out)
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	err := os.Remove(r.PathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes every entry of this repository that expired more than
// retention ago. Unreadable files are removed as well. Returns the number of
// files deleted.
func (r *Repository) DeleteExpired(retention time.Duration) (int, error) {
	files, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}

	cutoff := r.now().Add(-retention)
	deleted := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, r.prefix+"-") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		path := filepath.Join(r.dir, name)

		entry, err := readEntry(path)
		if err == nil && entry.Fresh(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", name, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *Repository) read(key string) (envelope, Entry, error) {
	path := r.PathFor(key)
	env, err := readEnvelope(path)
	if err != nil {
		return envelope{}, Entry{}, err
	}
	// A hash collision or a renamed source must not serve foreign data
	if env.Key != key {
		return envelope{}, Entry{}, ErrCacheMiss
	}
	return env, entryOf(env, path), nil
}

func readEntry(path string) (Entry, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return Entry{}, err
	}
	return entryOf(env, path), nil
}

func readEnvelope(path string) (envelope, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return envelope{}, ErrCacheMiss
	}
	if err != nil {
		return envelope{}, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode cache entry %s: %w", filepath.Base(path), err)
	}
	return env, nil
}

// entryOf reports times in UTC; msgpack decodes timestamps in time.Local
func entryOf(env envelope, path string) Entry {
	return Entry{Key: env.Key, Path: path, StoredAt: env.StoredAt.UTC(), ExpiresAt: env.ExpiresAt.UTC()}
}

func decode(env envelope, out interface{}) error {
	if err := msgpack.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}
