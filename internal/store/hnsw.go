package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/klauspost/compress/zstd"
)

const (
	graphFile = "index.hnsw"
	idsFile   = "ids.zst"
)

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HNSWVectorStore is an approximate nearest-neighbour index over document
// embeddings, built on coder/hnsw.
//
// Entries are appended: node key n belongs to file ids[n]. Re-adding a file
// appends a new node and tombstones the old one, so every file id resolves
// to its newest embedding only. Tombstones are compacted away on Save.
type HNSWVectorStore struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	config   VectorStoreConfig
	embedder Embedder

	ids    []int64          // node key -> file id
	latest map[int64]uint64 // file id -> live node key
	dims   int
}

// idSnapshot is the persisted companion of the exported graph.
type idSnapshot struct {
	Dims int
	IDs  []int64
}

// NewHNSWVectorStore creates an empty store. A nil embedder makes Add a
// no-op and Search always empty.
func NewHNSWVectorStore(cfg VectorStoreConfig, embedder Embedder) *HNSWVectorStore {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	if cfg.CompactRatio <= 0 {
		cfg.CompactRatio = 0.25
	}

	s := &HNSWVectorStore{config: cfg, embedder: embedder}
	s.resetLocked()
	return s
}

func (s *HNSWVectorStore) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.config.M
	g.EfSearch = s.config.EfSearch
	g.Ml = 0.25
	return g
}

func (s *HNSWVectorStore) resetLocked() {
	s.graph = s.newGraph()
	s.ids = nil
	s.latest = make(map[int64]uint64)
	s.dims = 0
}

// Available reports whether an embedding backend is configured.
func (s *HNSWVectorStore) Available() bool {
	return s.embedder != nil
}

// Add embeds text and appends it as the representative vector of fileID.
func (s *HNSWVectorStore) Add(ctx context.Context, fileID int64, text string) error {
	if s.embedder == nil {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed file %d: %w", fileID, err)
	}
	if len(vec) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		s.dims = len(vec)
	} else if len(vec) != s.dims {
		return ErrDimensionMismatch{Expected: s.dims, Got: len(vec)}
	}

	// Cosine over unit vectors orders results the same as inner product.
	v := make([]float32, len(vec))
	copy(v, vec)
	normalizeVectorInPlace(v)

	key := uint64(len(s.ids))
	s.graph.Add(hnsw.MakeNode(key, v))
	s.ids = append(s.ids, fileID)
	s.latest[fileID] = key
	return nil
}

// Search returns up to k file ids nearest to query, each at most once.
// It never fails: an empty store, a missing embedder or an embedding error
// all yield an empty slice.
func (s *HNSWVectorStore) Search(ctx context.Context, query string, k int) (out []int64) {
	out = []int64{}
	if s.embedder == nil || k <= 0 {
		return out
	}

	s.mu.RLock()
	empty := s.graph.Len() == 0
	s.mu.RUnlock()
	if empty {
		return out
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Debug("vector_query_embed_failed", slog.String("error", err.Error()))
		return out
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vec) != s.dims {
		slog.Debug("vector_query_dimension_mismatch",
			slog.Int("expected", s.dims), slog.Int("got", len(vec)))
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("vector_search_panic", slog.Any("panic", r))
			out = []int64{}
		}
	}()

	q := make([]float32, len(vec))
	copy(q, vec)
	normalizeVectorInPlace(q)

	tombstones := len(s.ids) - len(s.latest)
	for _, node := range s.graph.Search(q, k+tombstones) {
		if node.Key >= uint64(len(s.ids)) {
			continue
		}
		fid := s.ids[node.Key]
		if s.latest[fid] != node.Key {
			continue
		}
		out = append(out, fid)
		if len(out) == k {
			break
		}
	}
	return out
}

// Len returns the number of live file embeddings.
func (s *HNSWVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}

// Nodes returns the number of graph nodes, tombstones included.
func (s *HNSWVectorStore) Nodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Dimensions returns the vector width, 0 while the store is empty.
func (s *HNSWVectorStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// ArtifactPaths returns the graph and id snapshot files.
func (s *HNSWVectorStore) ArtifactPaths() []string {
	if s.config.Dir == "" {
		return nil
	}
	return []string{
		filepath.Join(s.config.Dir, graphFile),
		filepath.Join(s.config.Dir, idsFile),
	}
}

// compactLocked rebuilds the graph from live nodes only.
func (s *HNSWVectorStore) compactLocked() {
	keys := make([]uint64, 0, len(s.latest))
	for _, key := range s.latest {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	graph := s.newGraph()
	ids := make([]int64, 0, len(keys))
	latest := make(map[int64]uint64, len(keys))
	for _, old := range keys {
		vec, ok := s.graph.Lookup(old)
		if !ok {
			continue
		}
		key := uint64(len(ids))
		graph.Add(hnsw.MakeNode(key, vec))
		fid := s.ids[old]
		ids = append(ids, fid)
		latest[fid] = key
	}

	slog.Debug("vector_store_compacted",
		slog.Int("before", len(s.ids)), slog.Int("after", len(ids)))
	s.graph, s.ids, s.latest = graph, ids, latest
}

// Save writes the graph and its id snapshot, each through a temp file and
// rename. A store without a directory is not persisted.
func (s *HNSWVectorStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Dir == "" {
		return nil
	}
	if tomb := len(s.ids) - len(s.latest); tomb > 0 && float64(tomb) > s.config.CompactRatio*float64(len(s.ids)) {
		s.compactLocked()
	}
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create vector directory: %w", err)
	}

	graphPath := filepath.Join(s.config.Dir, graphFile)
	err := writeAtomic(graphPath, func(f *os.File) error {
		return s.graph.Export(f)
	})
	if err != nil {
		return fmt.Errorf("failed to save vector graph: %w", err)
	}

	idsPath := filepath.Join(s.config.Dir, idsFile)
	err = writeAtomic(idsPath, func(f *os.File) error {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if err := gob.NewEncoder(enc).Encode(idSnapshot{Dims: s.dims, IDs: s.ids}); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save vector ids: %w", err)
	}

	slog.Debug("vector_store_saved",
		slog.String("dir", s.config.Dir),
		slog.Int("nodes", len(s.ids)),
		slog.Int("files", len(s.latest)))
	return nil
}

// Load restores a saved store. Missing files mean a cold start and leave
// the store empty. A snapshot that disagrees with its graph, or with the
// configured embedder's width, is discarded with a warning.
func (s *HNSWVectorStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if s.config.Dir == "" {
		return nil
	}

	snap, err := readIDSnapshot(filepath.Join(s.config.Dir, idsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load vector ids: %w", err)
	}

	file, err := os.Open(filepath.Join(s.config.Dir, graphFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open vector graph: %w", err)
	}
	defer file.Close()

	graph := s.newGraph()
	// Import needs an io.ByteReader.
	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import vector graph: %w", err)
	}

	if graph.Len() != len(snap.IDs) {
		slog.Warn("vector_store_snapshot_mismatch",
			slog.Int("graph_nodes", graph.Len()),
			slog.Int("ids", len(snap.IDs)))
		return nil
	}
	if s.embedder != nil && s.embedder.Dimensions() > 0 && snap.Dims != 0 && snap.Dims != s.embedder.Dimensions() {
		slog.Warn("vector_store_dimension_changed",
			slog.Int("saved", snap.Dims),
			slog.Int("embedder", s.embedder.Dimensions()))
		return nil
	}

	s.graph = graph
	s.ids = snap.IDs
	s.dims = snap.Dims
	for key, fid := range s.ids {
		s.latest[fid] = uint64(key)
	}
	return nil
}

// Clear empties the store and deletes its files.
func (s *HNSWVectorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if s.config.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.config.Dir); err != nil {
		return fmt.Errorf("failed to remove vector directory: %w", err)
	}
	return nil
}

func readIDSnapshot(p string) (idSnapshot, error) {
	var snap idSnapshot
	f, err := os.Open(p)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	if err := gob.NewDecoder(dec).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode id snapshot: %w", err)
	}
	return snap, nil
}

// writeAtomic writes through p+".tmp" and renames over p.
func writeAtomic(p string, write func(f *os.File) error) error {
	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
