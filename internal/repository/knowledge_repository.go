package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

type knowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeBaseRepository instantiates the postgres knowledge base repository.
func NewKnowledgeBaseRepository(pool *pgxpool.Pool) KnowledgeBaseRepository {
	return &knowledgeRepository{pool: pool}
}

func (r *knowledgeRepository) List(ctx context.Context) ([]domain.KnowledgeBaseEntry, error) {
	const query = `
        SELECT id, title, content, keywords, category, position, created_at
        FROM knowledge_base ORDER BY position ASC, created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KnowledgeBaseEntry
	for rows.Next() {
		var entry domain.KnowledgeBaseEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Title,
			&entry.Content,
			&entry.Keywords,
			&entry.Category,
			&entry.Position,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *knowledgeRepository) Upsert(ctx context.Context, entry *domain.KnowledgeBaseEntry) error {
	const query = `
        INSERT INTO knowledge_base (id, title, content, keywords, category, position, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET
            title=EXCLUDED.title, content=EXCLUDED.content, keywords=EXCLUDED.keywords,
            category=EXCLUDED.category, position=EXCLUDED.position`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.Keywords,
		entry.Category,
		entry.Position,
		entry.CreatedAt,
	)
	return translatePgError(err)
}
