package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

const defaultTable = "embedding_vector"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Config struct {
	Table     string
	VectorDim int
}

// Store keeps vectors in a postgres table with a pgvector column and answers
// cosine queries through an HNSW index.
type Store struct {
	log   *logger.Logger
	db    *gorm.DB
	table string
	dim   int
}

var _ vectorstore.VectorStore = (*Store)(nil)

type row struct {
	ID        string     `gorm:"column:id"`
	Namespace string     `gorm:"column:namespace"`
	Embedding pgv.Vector `gorm:"column:embedding"`
	Metadata  string     `gorm:"column:metadata"`
}

type matchRow struct {
	ID       string  `gorm:"column:id"`
	Metadata string  `gorm:"column:metadata"`
	Score    float64 `gorm:"column:score"`
}

func New(log *logger.Logger, db *gorm.DB, cfg Config) (*Store, error) {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("pgvector: invalid table name %q", table)
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("pgvector: vector dim must be > 0")
	}
	return &Store{log: log.With("service", "PgVectorStore"), db: db, table: table, dim: cfg.VectorDim}, nil
}

// Migrate creates the extension, table and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, id)
		)`, s.table, s.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_hnsw ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_gin ON %s USING gin (metadata)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("pgvector migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	rows := make([]row, 0, len(vectors))
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("pgvector upsert: vector id is required")
		}
		if len(v.Values) != s.dim {
			return fmt.Errorf("pgvector upsert: vector %q dimension mismatch: expected=%d got=%d", v.ID, s.dim, len(v.Values))
		}
		meta := v.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("pgvector upsert: encode metadata: %w", err)
		}
		rows = append(rows, row{ID: v.ID, Namespace: namespace, Embedding: pgv.NewVector(v.Values), Metadata: string(raw)})
	}
	err := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"embedding": gorm.Expr("excluded.embedding"), "metadata": gorm.Expr("excluded.metadata"), "updated_at": gorm.Expr("now()")}),
	}).CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("pgvector upsert: %w", err)
	}
	return nil
}

func (s *Store) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]vectorstore.VectorMatch, error) {
	if len(q) != s.dim {
		return nil, fmt.Errorf("pgvector query: dimension mismatch: expected=%d got=%d", s.dim, len(q))
	}
	if topK <= 0 {
		topK = 10
	}
	where, args, err := whereClause(namespace, filter)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	vec := pgv.NewVector(q)
	sql := fmt.Sprintf(
		`SELECT id, metadata, 1 - (embedding <=> ?) AS score FROM %s WHERE %s ORDER BY embedding <=> ? LIMIT ?`,
		s.table, where,
	)
	all := append([]any{vec}, args...)
	all = append(all, vec, topK)

	var rows []matchRow
	if err := s.db.WithContext(ctx).Raw(sql, all...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	out := make([]vectorstore.VectorMatch, 0, len(rows))
	for _, r := range rows {
		meta := map[string]any{}
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
				s.log.Warn("pgvector metadata decode failed", "id", r.ID, "error", err)
			}
		}
		out = append(out, vectorstore.VectorMatch{ID: r.ID, Score: r.Score, Metadata: meta})
	}
	return out, nil
}

func (s *Store) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE namespace = ? AND id IN ?`, s.table),
		namespace, ids,
	).Error
	if err != nil {
		return fmt.Errorf("pgvector delete: %w", err)
	}
	return nil
}

// whereClause renders metadata conditions as text comparisons on JSONB fields.
func whereClause(namespace string, filter map[string]any) (string, []any, error) {
	conds, err := vectorstore.ParseFilter(filter)
	if err != nil {
		return "", nil, err
	}
	parts := []string{"namespace = ?"}
	args := []any{namespace}
	for _, c := range conds {
		if !identPattern.MatchString(c.Field) {
			return "", nil, fmt.Errorf("unsupported filter field %q", c.Field)
		}
		vals := make([]string, len(c.Values))
		for i, v := range c.Values {
			vals[i] = fmt.Sprint(v)
		}
		if len(vals) == 1 {
			parts = append(parts, fmt.Sprintf("metadata->>'%s' = ?", c.Field))
			args = append(args, vals[0])
			continue
		}
		parts = append(parts, fmt.Sprintf("metadata->>'%s' IN ?", c.Field))
		args = append(args, vals)
	}
	return strings.Join(parts, " AND "), args, nil
}
