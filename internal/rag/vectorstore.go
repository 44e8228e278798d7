package rag

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"

	sqlite "modernc.org/sqlite"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// VectorStore is a similarity-searchable chunk index backed by SQLite.
// Embeddings are stored as little-endian float32 BLOBs and compared with a
// registered cosine-distance scalar function, so the store needs no cgo and
// no external vector database.
type VectorStore struct {
	db        *sql.DB
	dimension int
}

func init() {
	// Registration is process-wide and applies to connections opened
	// afterwards; duplicates are rejected by the driver and ignored here.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine_distance", 2, vecCosineDistanceImpl)
}

// NewVectorStore opens (or creates) the chunk index at dbPath. Pass ":memory:"
// for an ephemeral store.
func NewVectorStore(dbPath string, dimension int) (*VectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %v", err)
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from silently forking per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 10000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS video_chunks (
		chunk_id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		start_sec INTEGER NOT NULL,
		end_sec INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_video ON video_chunks(video_id);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chunk table: %v", err)
	}

	return &VectorStore{db: db, dimension: dimension}, nil
}

// Upsert writes one entry per chunk keyed "{video_id}_{seq}". Re-indexing the
// same video overwrites entries at the same positions.
func (vs *VectorStore) Upsert(videoID string, chunks []types.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := vs.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := `
	INSERT INTO video_chunks (chunk_id, video_id, seq, start_sec, end_sec, content, embedding)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (chunk_id) DO UPDATE SET
		start_sec = excluded.start_sec,
		end_sec = excluded.end_sec,
		content = excluded.content,
		embedding = excluded.embedding;
	`
	for i, chunk := range chunks {
		if len(embeddings[i]) != vs.dimension {
			return fmt.Errorf("embedding %d has dimension %d, store expects %d", i, len(embeddings[i]), vs.dimension)
		}
		chunkID := fmt.Sprintf("%s_%d", videoID, chunk.Index)
		if _, err := tx.Exec(stmt, chunkID, videoID, chunk.Index, chunk.Start, chunk.End,
			chunk.Text, encodeEmbedding(embeddings[i])); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %v", chunkID, err)
		}
	}
	return tx.Commit()
}

// Query returns up to topK entries nearest to the query embedding, ranked by
// cosine similarity. The stored distance is converted to score = 1 - distance.
// videoID narrows the search to one video; pass "" to search everything.
func (vs *VectorStore) Query(embedding []float32, videoID string, topK int) ([]types.ChunkHit, error) {
	if len(embedding) != vs.dimension {
		return nil, fmt.Errorf("query embedding has dimension %d, store expects %d", len(embedding), vs.dimension)
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
	SELECT video_id, seq, start_sec, end_sec, content,
	       vec_cosine_distance(embedding, ?) AS distance
	FROM video_chunks
	`
	args := []any{encodeEmbedding(embedding)}
	if videoID != "" {
		query += " WHERE video_id = ?"
		args = append(args, videoID)
	}
	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, topK)

	rows, err := vs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %v", err)
	}
	defer rows.Close()

	var hits []types.ChunkHit
	for rows.Next() {
		var (
			vid      string
			seq      int
			start    int
			end      int
			content  string
			distance float64
		)
		if err := rows.Scan(&vid, &seq, &start, &end, &content, &distance); err != nil {
			return nil, err
		}
		hits = append(hits, types.ChunkHit{
			VideoID: vid,
			Text:    content,
			Start:   start,
			End:     end,
			Score:   1 - distance,
		})
	}
	return hits, rows.Err()
}

// DeleteByVideo purges every chunk belonging to a video. Called when a video
// is deleted and before re-indexing, so a shrinking transcript cannot leave
// stale high-seq entries behind.
func (vs *VectorStore) DeleteByVideo(videoID string) error {
	_, err := vs.db.Exec(`DELETE FROM video_chunks WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for video %s: %v", videoID, err)
	}
	return nil
}

// CountByVideo reports how many chunks are indexed for a video.
func (vs *VectorStore) CountByVideo(videoID string) (int, error) {
	var n int
	err := vs.db.QueryRow(`SELECT COUNT(*) FROM video_chunks WHERE video_id = ?`, videoID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (vs *VectorStore) Close() error {
	return vs.db.Close()
}

// vecCosineDistanceImpl computes 1 - cosine(a, b) over two embedding BLOBs.
func vecCosineDistanceImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_cosine_distance: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	sim, err := cosine(a, b)
	if err != nil {
		return nil, err
	}
	return 1 - sim, nil
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec_cosine_distance: unsupported argument type %T, want BLOB", arg)
	}
}

func encodeEmbedding(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cosine on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("cosine with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}
