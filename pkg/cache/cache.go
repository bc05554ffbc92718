// Package cache persists history walk results on disk so repeated runs
// against an unchanged repository head skip the full commit walk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/testevo/pkg/history"
	"github.com/Sumatoshi-tech/testevo/pkg/units"
)

// metadataVersion is bumped when the on-disk layout changes. Entries
// written by a different version are treated as misses.
const metadataVersion = 1

// DefaultMaxSize bounds the cache directory when no size is configured.
const DefaultMaxSize = 256 * units.MiB

const (
	metadataFile = "metadata.json"
	dataFile     = "walk.json.lz4"

	dirPerm  = 0o750
	filePerm = 0o600
)

// Sentinel errors for cache lookups.
var (
	// ErrMiss reports that no usable entry exists for the requested
	// repository and head. Wrapped variants carry the reason.
	ErrMiss = errors.New("cache miss")

	ErrVersionMismatch  = fmt.Errorf("%w: format version changed", ErrMiss)
	ErrRepoPathMismatch = fmt.Errorf("%w: repository path changed", ErrMiss)
	ErrHeadMismatch     = fmt.Errorf("%w: head commit changed", ErrMiss)
)

// metadata describes a stored entry. A mismatch on any field
// invalidates the entry.
type metadata struct {
	Version    int    `json:"version"`
	RepoPath   string `json:"repo_path"`
	HeadHash   string `json:"head_hash"`
	CreatedAt  string `json:"created_at"`
	RawSize    int    `json:"raw_size"`
	Compressed bool   `json:"compressed"`
}

// Cache stores one walk result per repository under a base directory.
// Entries are keyed by the repository path and validated against the
// head commit hash on load.
type Cache struct {
	baseDir string
	maxSize int64
}

// New returns a cache rooted at baseDir. A non-positive maxSize falls
// back to DefaultMaxSize.
func New(baseDir string, maxSize int64) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Cache{baseDir: baseDir, maxSize: maxSize}
}

// DefaultDir returns the per-user cache location. It falls back to a
// relative path when the home directory cannot be resolved.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".testevo", "cache")
}

// repoHash derives a stable directory name from a repository path.
func repoHash(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))

	return hex.EncodeToString(sum[:8])
}

func (c *Cache) repoDir(repoPath string) string {
	return filepath.Join(c.baseDir, repoHash(repoPath))
}

// Store writes the walk result for repoPath at headHash, replacing any
// previous entry for the repository, then evicts oldest entries until
// the cache fits its size bound.
func (c *Cache) Store(repoPath, headHash string, result *history.WalkResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode walk result: %w", err)
	}

	payload, compressed := compress(raw)

	dir := c.repoDir(repoPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, dataFile), payload, filePerm); err != nil {
		return fmt.Errorf("write cache data: %w", err)
	}

	meta := metadata{
		Version:    metadataVersion,
		RepoPath:   repoPath,
		HeadHash:   headHash,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		RawSize:    len(raw),
		Compressed: compressed,
	}

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, metadataFile), encoded, filePerm); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	return c.evict()
}

// Load returns the stored walk result for repoPath when the entry
// matches headHash. Absent or invalidated entries report ErrMiss.
func (c *Cache) Load(repoPath, headHash string) (*history.WalkResult, error) {
	dir := c.repoDir(repoPath)

	meta, err := readMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	switch {
	case meta.Version != metadataVersion:
		return nil, ErrVersionMismatch
	case meta.RepoPath != repoPath:
		return nil, ErrRepoPathMismatch
	case meta.HeadHash != headHash:
		return nil, ErrHeadMismatch
	}

	payload, err := os.ReadFile(filepath.Join(dir, dataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: data file missing", ErrMiss)
		}

		return nil, fmt.Errorf("read cache data: %w", err)
	}

	raw := payload
	if meta.Compressed {
		raw = make([]byte, meta.RawSize)
		if _, err := lz4.UncompressBlock(payload, raw); err != nil {
			return nil, fmt.Errorf("decompress cache data: %w", err)
		}
	}

	var result history.WalkResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode walk result: %w", err)
	}

	return &result, nil
}

// Clear removes the entry for repoPath. Clearing a repository that was
// never cached is not an error.
func (c *Cache) Clear(repoPath string) error {
	if err := os.RemoveAll(c.repoDir(repoPath)); err != nil {
		return fmt.Errorf("clear cache entry: %w", err)
	}

	return nil
}

// ClearAll removes every cached entry.
func (c *Cache) ClearAll() error {
	if err := os.RemoveAll(c.baseDir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	return nil
}

func readMetadata(path string) (metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return metadata{}, ErrMiss
		}

		return metadata{}, fmt.Errorf("read cache metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return metadata{}, fmt.Errorf("decode cache metadata: %w", err)
	}

	return meta, nil
}

// compress block-compresses raw. Incompressible payloads are kept as
// written, reported by the second return.
func compress(raw []byte) ([]byte, bool) {
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, buf, nil)
	if err != nil || written == 0 {
		return raw, false
	}

	return buf[:written], true
}

// entry pairs a cached repository directory with its size and age for
// eviction ordering.
type entry struct {
	dir     string
	size    int64
	created time.Time
}

// evict removes oldest entries until the total cache size fits the
// configured bound.
func (c *Cache) evict() error {
	dirs, err := os.ReadDir(c.baseDir)
	if err != nil {
		return fmt.Errorf("scan cache dir: %w", err)
	}

	entries := make([]entry, 0, len(dirs))

	var total int64

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}

		e := collectEntry(filepath.Join(c.baseDir, d.Name()))
		total += e.size
		entries = append(entries, e)
	}

	if total <= c.maxSize {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].created.Before(entries[j].created)
	})

	for _, e := range entries {
		if total <= c.maxSize {
			break
		}

		if err := os.RemoveAll(e.dir); err != nil {
			return fmt.Errorf("evict cache entry: %w", err)
		}

		total -= e.size
	}

	return nil
}

// collectEntry sums the entry's file sizes and resolves its creation
// time, falling back to directory modification time when the metadata
// is unreadable.
func collectEntry(dir string) entry {
	e := entry{dir: dir}

	files, err := os.ReadDir(dir)
	if err != nil {
		return e
	}

	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}

		e.size += info.Size()
	}

	if meta, err := readMetadata(filepath.Join(dir, metadataFile)); err == nil {
		if created, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
			e.created = created

			return e
		}
	}

	if info, err := os.Stat(dir); err == nil {
		e.created = info.ModTime()
	}

	return e
}
