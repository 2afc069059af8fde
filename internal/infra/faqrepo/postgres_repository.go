package faqrepo

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresRepository reads the FAQ corpus from a table with question and answer columns.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool, table string) (*PostgresRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid faq table name %q", table)
	}
	return &PostgresRepository{pool: pool, table: table}, nil
}

// Load implements faq.CorpusSource. Rows come back in id order.
func (r *PostgresRepository) Load(ctx context.Context) ([]faq.Record, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT question, COALESCE(answer, '')
		FROM %s
		ORDER BY id ASC
	`, r.table))
	if err != nil {
		return nil, fmt.Errorf("query faq corpus: %w", err)
	}
	defer rows.Close()

	var records []faq.Record
	for rows.Next() {
		var rec faq.Record
		if err := rows.Scan(&rec.Question, &rec.Answer); err != nil {
			return nil, fmt.Errorf("scan faq row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faq rows: %w", err)
	}
	return records, nil
}

var _ faq.CorpusSource = (*PostgresRepository)(nil)
