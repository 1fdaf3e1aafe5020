// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/palette/internal/catalog"
)

// DefaultName is the snapshot base name used when none is configured.
const DefaultName = "features"

const (
	snapshotExt = ".json"
	archiveExt  = ".json.gz"
	historyDir  = "history"
)

var (
	// ErrChecksumMismatch is returned when a snapshot's data does not hash to
	// the checksum recorded in its metadata.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

	// ErrNotFound is returned when the requested snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrArchive marks a Write whose current snapshot was replaced but whose
	// history archive or prune failed. The returned Location is still valid.
	ErrArchive = errors.New("snapshot archive failed")
)

// Metadata describes one pipeline run's output.
type Metadata struct {
	// GeneratedAt is the clock reading used for recency scoring.
	GeneratedAt time.Time `json:"generated_at"`

	// Algorithm identifies the feature and similarity heuristics.
	Algorithm string `json:"algorithm"`

	ItemCount             int `json:"item_count"`
	UserCount             int `json:"user_count"`
	ApprovalCount         int `json:"approval_count"`
	PositiveApprovalCount int `json:"positive_approval_count"`
	BehaviorCount         int `json:"behavior_count"`
	PairCount             int `json:"pair_count"`

	// ReferenceTags is the tag vocabulary, in tag_vector slot order.
	ReferenceTags []string `json:"reference_tags"`

	// PopularityNormalized reports whether popularity_score was scaled to [0,1].
	PopularityNormalized bool `json:"popularity_normalized"`

	// Checksum is the hex SHA-256 of the encoded data block. Set by Write.
	Checksum string `json:"checksum"`
}

// Data holds the derived structures of a run.
type Data struct {
	Items      []catalog.ItemFeatures                    `json:"items"`
	Profiles   map[string]*catalog.UserPreferenceProfile `json:"profiles"`
	Affinity   catalog.AffinityMatrix                    `json:"affinity"`
	Similarity catalog.SimilarityMatrix                  `json:"similarity"`
	Stats      catalog.GlobalStats                       `json:"stats"`
}

// Snapshot is the complete artifact of one run.
type Snapshot struct {
	Metadata Metadata `json:"metadata"`
	Data     Data     `json:"data"`
}

// envelope is the on-disk layout. Data stays raw so the checksum covers the
// exact bytes that were written.
type envelope struct {
	Metadata Metadata        `json:"metadata"`
	Data     json.RawMessage `json:"data"`
}

// Location reports where Write put a snapshot.
type Location struct {
	// Path is the fixed snapshot path.
	Path string `json:"path"`

	// Version is the archive version, 0 when archiving is disabled.
	Version int `json:"version"`

	// ArchivePath is the gzip history copy, empty when archiving is disabled
	// or failed.
	ArchivePath string `json:"archive_path,omitempty"`

	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// Archive describes one history entry.
type Archive struct {
	Version   int       `json:"version"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// Store manages the current snapshot and its gzip history.
type Store struct {
	dir  string
	name string
	keep int

	mu     sync.RWMutex
	latest int

	// fsync flushes a written temp file; replaced in tests.
	fsync func(*os.File) error
}

// NewStore creates a store writing <dir>/<name>.json. keep is the number of
// history archives retained; 0 disables archiving.
func NewStore(dir, name string, keep int) (*Store, error) {
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid snapshot name %q", name)
	}
	if keep < 0 {
		keep = 0
	}

	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	s := &Store{
		dir:   dir,
		name:  name,
		keep:  keep,
		fsync: func(f *os.File) error { return f.Sync() },
	}

	versions, err := s.scanHistory()
	if err != nil {
		return nil, fmt.Errorf("scan snapshot history: %w", err)
	}
	if len(versions) > 0 {
		s.latest = versions[0]
	}

	return s, nil
}

// Path returns the fixed snapshot path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.name+snapshotExt)
}

// Write encodes snap, fills in its checksum and atomically replaces the
// current snapshot. The previous snapshot survives any returned error.
func (s *Store) Write(ctx context.Context, snap *Snapshot) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	data, err := json.Marshal(&snap.Data)
	if err != nil {
		return Location{}, fmt.Errorf("encode snapshot data: %w", err)
	}
	snap.Metadata.Checksum = checksum(data)

	body, err := json.Marshal(envelope{Metadata: snap.Metadata, Data: data})
	if err != nil {
		return Location{}, fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return Location{}, fmt.Errorf("create snapshot directory: %w", err)
	}

	path := s.Path()
	if err := s.writeAtomic(path, body); err != nil {
		return Location{}, err
	}

	loc := Location{
		Path:      path,
		Checksum:  snap.Metadata.Checksum,
		SizeBytes: int64(len(body)),
	}

	if s.keep == 0 {
		return loc, nil
	}

	version := s.latest + 1
	archivePath, err := s.archive(version, body)
	if err != nil {
		// The current snapshot is durable; a missing archive only costs history.
		return loc, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	s.latest = version
	loc.Version = version
	loc.ArchivePath = archivePath

	if err := s.prune(s.keep); err != nil {
		return loc, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	return loc, nil
}

// writeAtomic writes body to a temp file next to path and renames it into place.
func (s *Store) writeAtomic(path string, body []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+s.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()        //nolint:errcheck // already failing
			_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		}
	}()

	if _, err = tmp.Write(body); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err = s.fsync(tmp); err != nil {
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err = os.Chmod(tmpName, 0o640); err != nil { //nolint:gosec // readable by the scoring service group
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// archive writes a gzip copy of body as history version v.
func (s *Store) archive(version int, body []byte) (string, error) {
	dir := filepath.Join(s.dir, historyDir)
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return "", fmt.Errorf("create history directory: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(body); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	path := s.archivePath(version)
	if err := s.writeAtomic(path, compressed.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads and verifies the current snapshot.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LoadFile(ctx, s.Path())
}

// LoadVersion reads and verifies history archive version.
func (s *Store) LoadVersion(ctx context.Context, version int) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.archivePath(version)) //nolint:gosec // path is built from trusted config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("version %d: %w", version, ErrNotFound)
		}
		return nil, fmt.Errorf("open snapshot archive: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	body, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed snapshot: %w", err)
	}
	return decode(ctx, body)
}

// LoadFile reads and verifies the snapshot at path.
func LoadFile(ctx context.Context, path string) (*Snapshot, error) {
	body, err := os.ReadFile(path) //nolint:gosec // path is built from trusted config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(ctx, body)
}

func decode(ctx context.Context, body []byte) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	if got := checksum(env.Data); got != env.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, env.Metadata.Checksum, got)
	}

	snap := &Snapshot{Metadata: env.Metadata}
	if err := json.Unmarshal(env.Data, &snap.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot data: %w", err)
	}
	return snap, nil
}

// LatestVersion returns the newest archive version.
func (s *Store) LatestVersion() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest > 0
}

// List returns the history archives, newest first.
func (s *Store) List(_ context.Context) ([]Archive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.scanHistory()
	if err != nil {
		return nil, err
	}

	archives := make([]Archive, 0, len(versions))
	for _, v := range versions {
		path := s.archivePath(v)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		archives = append(archives, Archive{
			Version:   v,
			Path:      path,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	return archives, nil
}

// Prune removes history archives, keeping the newest keep versions.
func (s *Store) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(keep)
}

func (s *Store) prune(keep int) error {
	if keep < 1 {
		keep = 1
	}

	versions, err := s.scanHistory()
	if err != nil {
		return err
	}

	for _, v := range versions[min(keep, len(versions)):] {
		if err := os.Remove(s.archivePath(v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove archive v%d: %w", v, err)
		}
	}
	return nil
}

// scanHistory returns archived versions of this snapshot, newest first.
func (s *Store) scanHistory() ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, historyDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version := parseArchiveFilename(entry.Name())
		if name != s.name {
			continue
		}
		versions = append(versions, version)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

// parseArchiveFilename splits "features_v12.json.gz" into ("features", 12).
func parseArchiveFilename(filename string) (name string, version int) {
	base, ok := strings.CutSuffix(filename, archiveExt)
	if !ok {
		return "", 0
	}

	idx := strings.LastIndex(base, "_v")
	if idx < 0 {
		return "", 0
	}

	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0
	}
	return base[:idx], version
}

func (s *Store) archivePath(version int) string {
	return filepath.Join(s.dir, historyDir, fmt.Sprintf("%s_v%d%s", s.name, version, archiveExt))
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
