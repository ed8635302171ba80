// Package sqlite provides a persisted vector store backed by a SQLite
// database file. It uses modernc.org/sqlite, a pure Go driver, so the
// index directory is portable and needs no CGO.
//
// Chunks and their vectors live in one table; vectors are stored as
// little-endian float32 blobs. A meta table records the corpus
// fingerprint and the vector dimension so a reopened index can be
// validated before reuse.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"docintel/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	page_index  INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type Store struct {
	db        *sql.DB
	path      string
	dimension int
}

// NewStore opens (creating if needed) the index database under dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "./index"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	dbPath := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Init records the vector dimension. Reopening an index built with a
// different dimension fails with ErrIndexMismatch rather than silently
// mixing incompatible vectors.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'dimension'").Scan(&stored)
	switch {
	case err == nil:
		d, convErr := strconv.Atoi(stored)
		if convErr != nil {
			return fmt.Errorf("parsing stored dimension: %w", convErr)
		}
		if d != dimension {
			return fmt.Errorf("%w: index dimension %d, embedder dimension %d", domain.ErrIndexMismatch, d, dimension)
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES ('dimension', ?)", strconv.Itoa(dimension)); err != nil {
			return fmt.Errorf("storing dimension: %w", err)
		}
	default:
		return fmt.Errorf("reading stored dimension: %w", err)
	}
	s.dimension = dimension
	return nil
}

// Upsert stores chunks and their vectors in one transaction.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return domain.ErrIndexMismatch
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, page_index, chunk_index, text, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			page_index = excluded.page_index,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			vector = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Source, c.PageIndex, c.Index, c.Text,
			float32SliceToBytes(vectors[i])); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Search ranks every stored vector by cosine similarity against the
// query vector. The corpus is a document folder, not a server workload,
// so a full scan is the right size of machinery.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, page_index, chunk_index, text, vector FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.PageIndex, &c.Index, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		results = append(results, domain.SearchResult{Chunk: c, Score: cosine(bytesToFloat32Slice(blob), vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Clear removes all chunks and the recorded metadata. A cleared store
// must be re-initialized before the next Upsert.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM meta"); err != nil {
		return fmt.Errorf("clearing metadata: %w", err)
	}
	s.dimension = 0
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Fingerprint returns the stored corpus fingerprint, or "" if none.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'fingerprint'").Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading fingerprint: %w", err)
	}
	return fp, nil
}

// SetFingerprint records the corpus fingerprint the index was built from.
func (s *Store) SetFingerprint(ctx context.Context, fp string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('fingerprint', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fp)
	if err != nil {
		return fmt.Errorf("storing fingerprint: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
