package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// DefaultSearchLimit is used when a caller passes a zero limit.
const DefaultSearchLimit = 50

// NoLimit asks a search for every match. The soft query budget still
// bounds how long it runs.
const NoLimit = -1

// schema creates the file, content and posting tables.
//
// texts is an external-content FTS5 table over contents, kept in sync by
// triggers, so the exact posting can never drift from the stored body.
// ngrams is contentless: only bigram postings are kept, keyed by file id.
// files.ngram_indexed records that the posting row exists, since rows of a
// contentless table cannot be read back.
const schema = `
CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY,
	path          TEXT    NOT NULL UNIQUE,
	modified      TEXT    NOT NULL,
	size          INTEGER NOT NULL,
	ext           TEXT    NOT NULL,
	ngram_indexed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS contents (
	file_id INTEGER PRIMARY KEY REFERENCES files(id),
	body    TEXT    NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS texts USING fts5(
	body,
	content = 'contents',
	content_rowid = 'file_id',
	tokenize = 'unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS ngrams USING fts5(
	grams,
	content = '',
	contentless_delete = 1,
	tokenize = 'unicode61'
);

CREATE TRIGGER IF NOT EXISTS contents_ai AFTER INSERT ON contents BEGIN
	INSERT INTO texts(rowid, body) VALUES (new.file_id, new.body);
END;

CREATE TRIGGER IF NOT EXISTS contents_ad AFTER DELETE ON contents BEGIN
	INSERT INTO texts(texts, rowid, body) VALUES ('delete', old.file_id, old.body);
END;

CREATE TRIGGER IF NOT EXISTS contents_au AFTER UPDATE ON contents BEGIN
	INSERT INTO texts(texts, rowid, body) VALUES ('delete', old.file_id, old.body);
	INSERT INTO texts(rowid, body) VALUES (new.file_id, new.body);
END;
`

// SQLiteIndex is the durable text index: file metadata, raw content, the
// exact FTS5 posting and the bigram posting. Queries may run while another
// process writes; WAL mode keeps readers unblocked.
type SQLiteIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	config    IndexConfig
	closed    bool
	recovered bool
}

// validateSQLiteIntegrity checks an existing database before it is opened.
// Returns nil if the file is absent or healthy.
func validateSQLiteIntegrity(dbPath string) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type='table' AND name IN ('files', 'contents')`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count != 0 && count != 2 {
		return fmt.Errorf("schema incomplete: %d of 2 base tables present", count)
	}
	return nil
}

// NewSQLiteIndex opens (or creates) the index at path.
// An empty path gives an in-memory index for testing.
// A database that fails its integrity check is removed and recreated empty.
func NewSQLiteIndex(dbPath string, cfg IndexConfig) (*SQLiteIndex, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultIndexConfig().QueryTimeout
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultIndexConfig().BusyTimeout
	}

	db, recovered, err := openIndexDB(dbPath, cfg)
	if err != nil {
		return nil, err
	}
	return &SQLiteIndex{db: db, path: dbPath, config: cfg, recovered: recovered}, nil
}

// openIndexDB opens the database and creates the schema. recovered is true
// when a corrupted file was discarded first; ids handed out before that
// point no longer mean anything.
func openIndexDB(dbPath string, cfg IndexConfig) (db *sql.DB, recovered bool, err error) {
	busy := cfg.BusyTimeout.Milliseconds()

	var dsn string
	if dbPath == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, amerrors.StorageError("failed to create index directory "+dir, err)
		}

		if validErr := validateSQLiteIntegrity(dbPath); validErr != nil {
			slog.Warn("sqlite_index_corrupted",
				slog.String("path", dbPath),
				slog.String("error", validErr.Error()))

			if removeErr := RemoveIndexFiles(dbPath); removeErr != nil {
				return nil, false, amerrors.StorageError(
					fmt.Sprintf("index corrupted at %s and cannot be removed (original error: %v)", dbPath, validErr),
					removeErr)
			}
			recovered = true

			slog.Info("sqlite_index_cleared",
				slog.String("path", dbPath),
				slog.String("reason", "corruption detected, rebuild required"))
		}

		// _pragma applies to every pooled connection, unlike a one-off Exec.
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)",
			dbPath, busy)
	}

	db, err = sql.Open("sqlite", dsn)
	if err != nil {
		return nil, false, amerrors.StorageError("failed to open index database", err)
	}

	if dbPath == "" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy)); err != nil {
			_ = db.Close()
			return nil, false, amerrors.StorageError("failed to set pragma", err)
		}
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, false, amerrors.StorageError("failed to create index schema", err)
	}
	return db, recovered, nil
}

// Recovered reports whether opening discarded a corrupted database. Anything
// keyed by file id, such as the vector store, is stale when it is true.
func (s *SQLiteIndex) Recovered() bool {
	return s.recovered
}

// Path returns the primary database file path ("" for in-memory).
func (s *SQLiteIndex) Path() string {
	return s.path
}

// ArtifactPaths lists the primary file and its WAL and shared-memory
// siblings. In-memory indexes have none.
func (s *SQLiteIndex) ArtifactPaths() (primary, wal, shm string) {
	return IndexArtifacts(s.path)
}

// IndexArtifacts returns the files that make up the database at dbPath.
// All three are empty for an in-memory index.
func IndexArtifacts(dbPath string) (primary, wal, shm string) {
	if dbPath == "" {
		return "", "", ""
	}
	return dbPath, dbPath + "-wal", dbPath + "-shm"
}

// RemoveIndexFiles deletes the database at dbPath with its journals.
// Missing files are not an error.
func RemoveIndexFiles(dbPath string) error {
	primary, wal, shm := IndexArtifacts(dbPath)
	for _, p := range []string{primary, wal, shm} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// UpsertFile inserts or updates the metadata for path and returns its id.
// Existing ids are preserved. When the metadata changes, the n-gram posting
// is marked stale so IsUpToDate stays false until the file is rewritten.
func (s *SQLiteIndex) UpsertFile(ctx context.Context, filePath, modified string, size int64, ext string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, amerrors.StorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := upsertFileTx(ctx, tx, FileMeta{Path: filePath, Modified: modified, Size: size, Ext: ext})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, amerrors.StorageError("failed to commit file upsert", err)
	}
	return id, nil
}

// IsUpToDate reports whether path is indexed with exactly this metadata,
// non-empty content and an n-gram posting. Anything less returns false so
// the builder re-extracts.
func (s *SQLiteIndex) IsUpToDate(ctx context.Context, filePath, modified string, size int64, ext string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, errClosed()
	}

	var ngramIndexed int
	var bodyLen sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT f.ngram_indexed, length(c.body)
		FROM files f
		LEFT JOIN contents c ON c.file_id = f.id
		WHERE f.path = ? AND f.modified = ? AND f.size = ? AND f.ext = ?`,
		filePath, modified, size, ext).Scan(&ngramIndexed, &bodyLen)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, amerrors.StorageError("failed to check index state for "+filePath, err)
	}
	return ngramIndexed == 1 && bodyLen.Valid && bodyLen.Int64 > 0, nil
}

// WriteContent replaces the stored body and, through the content triggers,
// the exact posting. The n-gram posting is marked stale until WriteNGram.
func (s *SQLiteIndex) WriteContent(ctx context.Context, id int64, text string) error {
	return s.withTx(ctx, "write content", func(tx *sql.Tx) error {
		if err := writeContentTx(ctx, tx, id, text); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE files SET ngram_indexed = 0 WHERE id = ?`, id)
		return err
	})
}

// WriteNGram replaces the bigram posting for id, computed from the file's
// base name followed by text.
func (s *SQLiteIndex) WriteNGram(ctx context.Context, id int64, text string) error {
	return s.withTx(ctx, "write n-gram posting", func(tx *sql.Tx) error {
		var filePath string
		if err := tx.QueryRowContext(ctx, `SELECT path FROM files WHERE id = ?`, id).Scan(&filePath); err != nil {
			return fmt.Errorf("file %d: %w", id, err)
		}
		return writeNGramTx(ctx, tx, id, path.Base(filePath), text)
	})
}

// IndexFile upserts metadata and writes content, exact posting and n-gram
// posting in one transaction. A failure leaves previously committed data
// for the path untouched.
func (s *SQLiteIndex) IndexFile(ctx context.Context, meta FileMeta, text string) (int64, error) {
	var id int64
	err := s.withTx(ctx, "index "+meta.Path, func(tx *sql.Tx) error {
		var err error
		if id, err = upsertFileTx(ctx, tx, meta); err != nil {
			return err
		}
		if err := writeContentTx(ctx, tx, id, text); err != nil {
			return err
		}
		return writeNGramTx(ctx, tx, id, path.Base(meta.Path), text)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteIndex) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return amerrors.StorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		if ae, ok := amerrors.As(err); ok {
			return ae
		}
		return amerrors.StorageError("failed to "+op, err)
	}
	if err := tx.Commit(); err != nil {
		return amerrors.StorageError("failed to commit "+op, err)
	}
	return nil
}

func upsertFileTx(ctx context.Context, tx *sql.Tx, meta FileMeta) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO files (path, modified, size, ext) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			ngram_indexed = CASE
				WHEN files.modified = excluded.modified AND files.size = excluded.size AND files.ext = excluded.ext
				THEN files.ngram_indexed ELSE 0 END,
			modified = excluded.modified,
			size     = excluded.size,
			ext      = excluded.ext
		RETURNING id`,
		meta.Path, meta.Modified, meta.Size, meta.Ext).Scan(&id)
	if err != nil {
		return 0, amerrors.StorageError("failed to upsert file "+meta.Path, err)
	}
	return id, nil
}

func writeContentTx(ctx context.Context, tx *sql.Tx, id int64, text string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contents (file_id, body) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET body = excluded.body`,
		id, text)
	if err != nil {
		return amerrors.StorageError(fmt.Sprintf("failed to write content for file %d", id), err)
	}
	return nil
}

// writeNGramTx deletes then inserts, since FTS5 has no REPLACE.
func writeNGramTx(ctx context.Context, tx *sql.Tx, id int64, name, text string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ngrams WHERE rowid = ?`, id); err != nil {
		return amerrors.StorageError(fmt.Sprintf("failed to clear n-gram posting for file %d", id), err)
	}
	grams := Bigrams(name + " " + text)
	if _, err := tx.ExecContext(ctx, `INSERT INTO ngrams (rowid, grams) VALUES (?, ?)`, id, grams); err != nil {
		return amerrors.StorageError(fmt.Sprintf("failed to write n-gram posting for file %d", id), err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE files SET ngram_indexed = 1 WHERE id = ?`, id); err != nil {
		return amerrors.StorageError(fmt.Sprintf("failed to flag n-gram posting for file %d", id), err)
	}
	return nil
}

// SearchExact matches query against the exact posting. Whitespace-separated
// terms must all match; FTS5 operators in the input are treated as text.
func (s *SQLiteIndex) SearchExact(ctx context.Context, query string, limit int, scope string) ([]Hit, error) {
	match := exactMatchExpr(query)
	if match == "" {
		return []Hit{}, nil
	}
	where, args := scopeFilter("f.path", scope)
	q := `
		SELECT f.id, f.path
		FROM (SELECT rowid AS id, rank FROM texts WHERE texts MATCH ?) m
		JOIN files f ON f.id = m.id
		WHERE ` + where + `
		ORDER BY m.rank
		LIMIT ?`
	return s.queryHits(ctx, "exact", q, append(append([]any{match}, args...), normLimit(limit))...)
}

// SearchNGram matches any bigram of query against the n-gram posting. It
// favours recall: a file whose text holds the grams apart from each other
// also matches. Queries under two characters fall back to SearchExact.
func (s *SQLiteIndex) SearchNGram(ctx context.Context, query string, limit int, scope string) ([]Hit, error) {
	if utf8.RuneCountInString(Normalize(query)) < NGramSize {
		return s.SearchExact(ctx, query, limit, scope)
	}
	match := ngramMatchExpr(query)
	if match == "" {
		return []Hit{}, nil
	}
	where, args := scopeFilter("f.path", scope)
	q := `
		SELECT f.id, f.path
		FROM (SELECT rowid AS id, rank FROM ngrams WHERE ngrams MATCH ?) m
		JOIN files f ON f.id = m.id
		WHERE ` + where + `
		ORDER BY m.rank
		LIMIT ?`
	return s.queryHits(ctx, "ngram", q, append(append([]any{match}, args...), normLimit(limit))...)
}

// SearchNGramVerified draws candidates like SearchNGram and keeps only files
// whose stored content contains query verbatim (case-sensitive). Queries
// under two characters skip the gram filter and scan content directly.
func (s *SQLiteIndex) SearchNGramVerified(ctx context.Context, query string, limit int, scope string) ([]Hit, error) {
	literal := strings.TrimSpace(query)
	if literal == "" {
		return []Hit{}, nil
	}
	limit = normLimit(limit)
	where, args := scopeFilter("f.path", scope)

	match := ngramMatchExpr(literal)
	if utf8.RuneCountInString(Normalize(literal)) < NGramSize || match == "" {
		q := `
			SELECT f.id, f.path
			FROM contents c
			JOIN files f ON f.id = c.file_id
			WHERE instr(c.body, ?) > 0 AND ` + where + `
			ORDER BY f.id
			LIMIT ?`
		return s.queryHits(ctx, "substring", q, append(append([]any{literal}, args...), limit)...)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	qctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(qctx, `
		SELECT f.id, f.path, c.body
		FROM (SELECT rowid AS id, rank FROM ngrams WHERE ngrams MATCH ?) m
		JOIN files f ON f.id = m.id
		JOIN contents c ON c.file_id = f.id
		WHERE `+where+`
		ORDER BY m.rank`,
		append([]any{match}, args...)...)
	if err != nil {
		return s.settle(ctx, qctx, "ngram_verified", []Hit{}, err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		var body string
		if err := rows.Scan(&h.ID, &h.Path, &body); err != nil {
			return s.settle(ctx, qctx, "ngram_verified", hits, err)
		}
		if !strings.Contains(body, literal) {
			continue
		}
		hits = append(hits, h)
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return s.settle(ctx, qctx, "ngram_verified", hits, rows.Err())
}

// queryHits runs a (id, path) query under the soft time budget.
func (s *SQLiteIndex) queryHits(ctx context.Context, op, q string, args ...any) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	qctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(qctx, q, args...)
	if err != nil {
		return s.settle(ctx, qctx, op, []Hit{}, err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Path); err != nil {
			return s.settle(ctx, qctx, op, hits, err)
		}
		hits = append(hits, h)
	}
	return s.settle(ctx, qctx, op, hits, rows.Err())
}

// settle decides what a search returns when it stops early. A spent budget
// yields the partial hits without error; a cancelled caller gets its own
// context error; anything else is a storage failure.
func (s *SQLiteIndex) settle(parent, qctx context.Context, op string, hits []Hit, err error) ([]Hit, error) {
	if err == nil {
		return hits, nil
	}
	if parent.Err() != nil {
		return hits, parent.Err()
	}
	if qctx.Err() != nil {
		slog.Warn("sqlite_index_query_timeout",
			slog.String("op", op),
			slog.Duration("budget", s.config.QueryTimeout),
			slog.Int("partial_hits", len(hits)))
		return hits, nil
	}
	return hits, amerrors.StorageError(op+" search failed", err)
}

// CountUnder returns how many files are indexed under scope.
func (s *SQLiteIndex) CountUnder(ctx context.Context, scope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed()
	}

	where, args := scopeFilter("path", scope)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE `+where, args...).Scan(&n); err != nil {
		return 0, amerrors.StorageError("failed to count indexed files", err)
	}
	return n, nil
}

// ResolveByIDs returns the records for ids in input order. Unknown ids are
// dropped.
func (s *SQLiteIndex) ResolveByIDs(ctx context.Context, ids []int64) ([]FileRecord, error) {
	if len(ids) == 0 {
		return []FileRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, modified, size, ext FROM files WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, amerrors.StorageError("failed to resolve file ids", err)
	}
	defer rows.Close()

	byID := make(map[int64]FileRecord, len(ids))
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.ID, &r.Path, &r.Modified, &r.Size, &r.Ext); err != nil {
			return nil, amerrors.StorageError("failed to scan file record", err)
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.StorageError("failed to resolve file ids", err)
	}

	out := make([]FileRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reset deletes the database files and reopens an empty schema.
// Returns the number of bytes reclaimed on disk.
func (s *SQLiteIndex) Reset(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed()
	}

	before := s.diskUsage()
	if err := s.destroyLocked(); err != nil {
		return 0, err
	}

	db, _, err := openIndexDB(s.path, s.config)
	if err != nil {
		return 0, err
	}
	s.db = db
	s.closed = false

	freed := before - s.diskUsage()
	if freed < 0 {
		freed = 0
	}
	slog.Info("sqlite_index_reset", slog.String("path", s.path), slog.Int64("bytes_freed", freed))
	return freed, nil
}

// diskUsage sums the primary, WAL and SHM file sizes. Caller holds mu.
func (s *SQLiteIndex) diskUsage() int64 {
	primary, wal, shm := s.ArtifactPaths()
	return FileSize(primary) + FileSize(wal) + FileSize(shm)
}

// Destroy closes the index and deletes its files. Unlike Reset it does not
// create a new schema, so nothing is left on disk; the index cannot be used
// afterwards.
func (s *SQLiteIndex) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if err := RemoveIndexFiles(s.path); err != nil {
			return amerrors.StorageError("failed to remove index files at "+s.path, err)
		}
		return nil
	}
	return s.destroyLocked()
}

// destroyLocked closes the handle and removes the files. Caller holds mu.
func (s *SQLiteIndex) destroyLocked() error {
	if err := s.db.Close(); err != nil {
		slog.Warn("sqlite_index_close_failed", slog.String("error", err.Error()))
	}
	s.closed = true
	if err := RemoveIndexFiles(s.path); err != nil {
		return amerrors.StorageError("failed to remove index files at "+s.path, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// FileSize returns the size of the file at p, or 0 if it does not exist.
func FileSize(p string) int64 {
	if p == "" {
		return 0
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0
	}
	return info.Size()
}

func errClosed() error {
	return amerrors.StorageError("index store is closed", nil)
}

// normLimit maps a limit to the SQL LIMIT value; -1 is unbounded in SQLite.
func normLimit(limit int) int {
	switch {
	case limit < 0:
		return NoLimit
	case limit == 0:
		return DefaultSearchLimit
	}
	return limit
}

// scopeFilter builds a WHERE fragment restricting column to the subtree.
func scopeFilter(column, scope string) (string, []any) {
	prefix := NormalizeScope(scope)
	if prefix == "" {
		return "1 = 1", nil
	}
	return "(" + column + " = ? OR substr(" + column + ", 1, length(?)) = ?)",
		[]any{strings.TrimSuffix(prefix, "/"), prefix, prefix}
}

// quoteTerm makes a term safe for FTS5 by turning it into a phrase.
func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// exactMatchExpr ANDs the whitespace-separated terms of query as phrases.
func exactMatchExpr(query string) string {
	var terms []string
	for _, t := range strings.Fields(query) {
		if hasWordRune(t) {
			terms = append(terms, quoteTerm(t))
		}
	}
	return strings.Join(terms, " ")
}

// ngramMatchExpr ORs the distinct bigrams of query as phrases.
func ngramMatchExpr(query string) string {
	seen := make(map[string]struct{})
	var terms []string
	for _, g := range BigramTerms(query) {
		if _, ok := seen[g]; ok || !hasWordRune(g) {
			continue
		}
		seen[g] = struct{}{}
		terms = append(terms, quoteTerm(g))
	}
	return strings.Join(terms, " OR ")
}
