package materials

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func TestEmbeddingChunkRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEmbeddingChunkRepo(db, testutil.Logger(t))

	m := testutil.SeedMaterial(t, ctx, db, "user-a")
	old := testutil.SeedChunk(t, ctx, db, m.ID, 0, "old chunk")

	fresh := []*domain.EmbeddingChunk{
		{ChunkIndex: 0, Content: "first", Dimensions: 3},
		{ChunkIndex: 1, Content: "second", Dimensions: 3},
	}
	removed, err := repo.Replace(dbc, m.ID, fresh)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(removed) != 1 || removed[0] != old.ID {
		t.Fatalf("Replace removed: %v", removed)
	}

	rows, err := repo.ListByMaterial(dbc, m.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByMaterial: err=%v len=%d", err, len(rows))
	}
	if rows[0].Content != "first" || rows[1].ChunkIndex != 1 {
		t.Fatalf("ListByMaterial order: %+v", rows)
	}

	counts, err := repo.CountByMaterial(dbc)
	if err != nil || counts[m.ID] != 2 {
		t.Fatalf("CountByMaterial: err=%v counts=%v", err, counts)
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{rows[1].ID})
	if err != nil || len(got) != 1 || got[0].Content != "second" {
		t.Fatalf("GetByIDs: err=%v got=%v", err, got)
	}

	page, err := repo.ListPage(dbc, 1, 10)
	if err != nil || len(page) != 1 || page[0].ChunkIndex != 1 {
		t.Fatalf("ListPage: err=%v page=%v", err, page)
	}

	ids, err := repo.DeleteByMaterial(dbc, m.ID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("DeleteByMaterial: err=%v ids=%v", err, ids)
	}
}

func TestEmbeddingChunkRepoRejectsDuplicateIndex(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEmbeddingChunkRepo(db, testutil.Logger(t))

	m := testutil.SeedMaterial(t, ctx, db, "user-a")
	testutil.SeedChunk(t, ctx, db, m.ID, 0, "kept")

	_, err := repo.Replace(dbc, m.ID, []*domain.EmbeddingChunk{
		{ChunkIndex: 0, Content: "a", Dimensions: 3},
		{ChunkIndex: 0, Content: "b", Dimensions: 3},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Replace duplicate: want ErrConflict got=%v", err)
	}

	rows, _ := repo.ListByMaterial(dbc, m.ID)
	if len(rows) != 1 || rows[0].Content != "kept" {
		t.Fatalf("rollback: want original chunk, got=%+v", rows)
	}
}
