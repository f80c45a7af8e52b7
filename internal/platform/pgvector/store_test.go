package pgvector

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

func TestWhereClause(t *testing.T) {
	where, args, err := whereClause("chunks", map[string]any{
		"material_id": map[string]any{"$in": []string{"m-1", "m-2"}},
		"category":    "Lab",
	})
	if err != nil {
		t.Fatalf("whereClause: %v", err)
	}
	want := "namespace = ? AND metadata->>'category' = ? AND metadata->>'material_id' IN ?"
	if where != want {
		t.Fatalf("where: want=%q got=%q", want, where)
	}
	wantArgs := []any{"chunks", "Lab", []string{"m-1", "m-2"}}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args: want=%v got=%v", wantArgs, args)
	}
}

func TestWhereClauseRejectsUnsafeFields(t *testing.T) {
	if _, _, err := whereClause("chunks", map[string]any{"x'; drop table": 1}); err == nil {
		t.Fatalf("expected error for unsafe field")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(logger.Nop(), nil, Config{Table: "bad-name", VectorDim: 3}); err == nil {
		t.Fatalf("expected invalid table error")
	}
	if _, err := New(logger.Nop(), nil, Config{VectorDim: 0}); err == nil {
		t.Fatalf("expected invalid dim error")
	}
}

func TestStoreRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	ctx := context.Background()
	s, err := New(logger.Nop(), db, Config{Table: "embedding_vector_test", VectorDim: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Exec("DROP TABLE IF EXISTS embedding_vector_test") })

	err = s.Upsert(ctx, "chunks", []vectorstore.Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{"category": "Theory"}},
		{ID: "b", Values: []float32{0, 1, 0}, Metadata: map[string]any{"category": "Lab"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.QueryMatches(ctx, "chunks", []float32{1, 0.1, 0}, 5, map[string]any{"category": "Theory"})
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Score < 0.9 {
		t.Fatalf("matches: %+v", got)
	}
	if err := s.DeleteIDs(ctx, "chunks", []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	got, _ = s.QueryMatches(ctx, "chunks", []float32{1, 0, 0}, 5, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty after delete, got %+v", got)
	}
}
