package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/domain/vectorindex"
)

const (
	shapeArtifact = "embeddings_shape"
	indexArtifact = "faq_index"
)

// Schema creates the tables used by PostgresRepository.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS faq_embeddings (
	position  INTEGER PRIMARY KEY,
	embedding vector NOT NULL
);
CREATE TABLE IF NOT EXISTS faq_artifacts (
	name       TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository stores one pgvector row per corpus position and the
// serialized index as a bytea blob. Each save replaces its artifact in a
// single transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the artifact tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

// LoadMatrix implements faq.ArtifactRepository.
func (r *PostgresRepository) LoadMatrix(ctx context.Context) (vectorindex.Matrix, error) {
	shape, err := r.loadBlob(ctx, shapeArtifact)
	if err != nil {
		return vectorindex.Matrix{}, err
	}
	var rows, dim int
	if _, err := fmt.Sscanf(string(shape), "%d,%d", &rows, &dim); err != nil {
		return vectorindex.Matrix{}, fmt.Errorf("%w: bad shape %q", vectorindex.ErrMalformedMatrix, shape)
	}

	result, err := r.pool.Query(ctx, `
		SELECT position, embedding
		FROM faq_embeddings
		ORDER BY position ASC
	`)
	if err != nil {
		return vectorindex.Matrix{}, err
	}
	defer result.Close()

	m := vectorindex.Matrix{Rows: rows, Dim: dim, Data: make([]float32, 0, rows*dim)}
	next := 0
	for result.Next() {
		var (
			position int
			vec      pgvector.Vector
		)
		if err := result.Scan(&position, &vec); err != nil {
			return vectorindex.Matrix{}, err
		}
		values := vec.Slice()
		if position != next || len(values) != dim {
			return vectorindex.Matrix{}, fmt.Errorf("%w: row %d has %d values at position %d", vectorindex.ErrMalformedMatrix, next, len(values), position)
		}
		m.Data = append(m.Data, values...)
		next++
	}
	if err := result.Err(); err != nil {
		return vectorindex.Matrix{}, err
	}
	if next != rows {
		return vectorindex.Matrix{}, fmt.Errorf("%w: found %d rows, expected %d", vectorindex.ErrMalformedMatrix, next, rows)
	}
	return m, nil
}

// SaveMatrix implements faq.ArtifactRepository.
func (r *PostgresRepository) SaveMatrix(ctx context.Context, m vectorindex.Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM faq_embeddings`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i := 0; i < m.Rows; i++ {
			batch.Queue(`
				INSERT INTO faq_embeddings (position, embedding)
				VALUES ($1, $2)
			`, i, pgvector.NewVector(m.Row(i)))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		return upsertBlob(ctx, tx, shapeArtifact, []byte(fmt.Sprintf("%d,%d", m.Rows, m.Dim)))
	})
}

// LoadIndex implements faq.ArtifactRepository.
func (r *PostgresRepository) LoadIndex(ctx context.Context) ([]byte, error) {
	return r.loadBlob(ctx, indexArtifact)
}

// SaveIndex implements faq.ArtifactRepository.
func (r *PostgresRepository) SaveIndex(ctx context.Context, blob []byte) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return upsertBlob(ctx, tx, indexArtifact, blob)
	})
}

func (r *PostgresRepository) loadBlob(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
		SELECT payload FROM faq_artifacts WHERE name = $1
	`, name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", faq.ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func upsertBlob(ctx context.Context, tx pgx.Tx, name string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO faq_artifacts (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, name, payload)
	return err
}

var _ faq.ArtifactRepository = (*PostgresRepository)(nil)
