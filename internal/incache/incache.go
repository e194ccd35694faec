// Package incache implements the optional incremental-analysis
// content-digest cache: a sqlite-backed record of each file's last
// seen digest, letting a subsequent run skip re-tokenizing unchanged
// files for the clusterer's "with code" prompt variant. It never
// changes what a run produces, only how much source text the
// clustering prompt includes; the component registry is always
// rebuilt from a full re-parse regardless of cache state. Records are
// stored as protobuf-encoded structpb values keyed by relative path,
// with blake2b-256 content digests.
package incache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"os"

	"golang.org/x/crypto/blake2b"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	_ "modernc.org/sqlite"

	"codedoc/internal/extract"
	"codedoc/internal/logging"
	"codedoc/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS content_digests (
	relative_path TEXT PRIMARY KEY,
	record        BLOB NOT NULL
);`

// Cache wraps a sqlite-backed digest store. A nil *Cache is valid and
// behaves as an always-miss cache, so callers can disable caching
// unconditionally by passing nil rather than branching everywhere.
type Cache struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens or creates the digest database at path. Any failure to
// open or migrate the store is logged and reported as a disabled
// cache (nil, nil) rather than an error, since caching is strictly an
// optimization: a run must proceed identically whether or not it is
// available.
func Open(path string, log *logging.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		if log != nil {
			log.Warn("incremental-analysis cache unavailable, continuing without it", map[string]any{"error": err.Error()})
		}
		return nil, nil
	}
	if _, err := db.Exec(schema); err != nil {
		if log != nil {
			log.Warn("incremental-analysis cache migration failed, continuing without it", map[string]any{"error": err.Error()})
		}
		db.Close()
		return nil, nil
	}
	return &Cache{db: db, log: log}, nil
}

// Close releases the underlying database handle. Safe to call on a nil Cache.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ComputeDigest hashes a file's content with blake2b-256, keyed by
// relPath and tagged with language for the stored record.
func ComputeDigest(absPath, relPath string, language extract.Language) (model.ContentDigest, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ContentDigest{}, err
	}
	sum := blake2b.Sum256(data)
	return model.ContentDigest{
		RelativePath: relPath,
		Language:     string(language),
		Digest:       hex.EncodeToString(sum[:]),
	}, nil
}

// Get returns the previously recorded digest for relPath, if any.
func (c *Cache) Get(ctx context.Context, relPath string) (model.ContentDigest, bool) {
	if c == nil || c.db == nil {
		return model.ContentDigest{}, false
	}
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT record FROM content_digests WHERE relative_path = ?`, relPath).Scan(&blob)
	if err != nil {
		return model.ContentDigest{}, false
	}
	digest, err := decodeRecord(blob)
	if err != nil {
		return model.ContentDigest{}, false
	}
	return digest, true
}

// Put upserts digest's record.
func (c *Cache) Put(ctx context.Context, digest model.ContentDigest) error {
	if c == nil || c.db == nil {
		return nil
	}
	blob, err := encodeRecord(digest)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO content_digests (relative_path, record) VALUES (?, ?)
		ON CONFLICT(relative_path) DO UPDATE SET record = excluded.record`,
		digest.RelativePath, blob)
	return err
}

// FilterChanged partitions entries into those whose content digest
// differs from (or is absent from) the cache and those that are
// unchanged, updating the cache with every entry's current digest as
// it goes. On a nil Cache every entry is reported changed.
func (c *Cache) FilterChanged(ctx context.Context, root string, entries []extract.FileEntry) (changed, unchanged []extract.FileEntry) {
	for _, e := range entries {
		digest, err := ComputeDigest(e.AbsPath, e.RelPath, e.Language)
		if err != nil {
			changed = append(changed, e)
			continue
		}

		if prior, ok := c.Get(ctx, e.RelPath); ok && prior.Digest == digest.Digest {
			unchanged = append(unchanged, e)
		} else {
			changed = append(changed, e)
		}

		if err := c.Put(ctx, digest); err != nil && c != nil && c.log != nil {
			c.log.Warn("failed to update incremental-analysis cache entry", map[string]any{"path": e.RelPath, "error": err.Error()})
		}
	}
	return changed, unchanged
}

// encodeRecord serializes digest as a protobuf-encoded structpb.Struct.
func encodeRecord(digest model.ContentDigest) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"relativePath": digest.RelativePath,
		"language":     digest.Language,
		"digest":       digest.Digest,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeRecord(blob []byte) (model.ContentDigest, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(blob, &s); err != nil {
		return model.ContentDigest{}, err
	}
	fields := s.AsMap()
	return model.ContentDigest{
		RelativePath: stringField(fields, "relativePath"),
		Language:     stringField(fields, "language"),
		Digest:       stringField(fields, "digest"),
	}, nil
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
