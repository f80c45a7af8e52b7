package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func TestUpsertChunksDropsFailedChunks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	h.api.failOn = "FAIL"

	n, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion one", "FAIL two", "recursion three"}, m.Snapshot())
	if err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if n != 2 {
		t.Fatalf("count: want=2 got=%d", n)
	}
	rows, _ := h.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, m.ID)
	if len(rows) != 2 || rows[0].ChunkIndex != 0 || rows[1].ChunkIndex != 2 {
		t.Fatalf("rows: %+v", rows)
	}
	if rows[0].Dimensions != len(keywordAxes)+1 || rows[0].Model != "test-embedding" {
		t.Fatalf("row metadata: dims=%d model=%q", rows[0].Dimensions, rows[0].Model)
	}
	if h.vectors.Len(VectorNamespace) != 2 {
		t.Fatalf("vectors: want=2 got=%d", h.vectors.Len(VectorNamespace))
	}
}

func TestUpsertChunksAllFailedKeepsExistingChunks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion"}, m.Snapshot()); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	h.api.failOn = "FAIL"
	_, err := h.store.UpsertChunks(ctx, m.ID, []string{"FAIL"}, m.Snapshot())
	if !errors.Is(err, ErrNothingEmbedded) {
		t.Fatalf("want ErrNothingEmbedded, got %v", err)
	}
	if ok, _ := h.store.HasEmbeddings(ctx, m.ID); !ok {
		t.Fatalf("existing chunks should survive a fully failed re-embed")
	}
}

func TestUpsertChunksFileReferenceCollapsesToSyntheticChunk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) {
		m.Title = "Graph Lab Sheet"
		m.Topic = "graph traversal"
		m.Category = domain.CategoryLab
		m.Week = 4
		m.Content = ""
		m.FileURL = "https://files.example/graph.pdf"
	})
	sentinel := domain.EncodeContent(domain.FileReference{URL: m.FileURL})

	n, err := h.store.UpsertChunks(ctx, m.ID, []string{sentinel, "ignored"}, m.Snapshot())
	if err != nil || n != 1 {
		t.Fatalf("UpsertChunks: n=%d err=%v", n, err)
	}
	rows, _ := h.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, m.ID)
	if len(rows) != 1 || rows[0].Content != sentinel {
		t.Fatalf("file chunk should keep the full sentinel: %+v", rows)
	}
	embedded := h.api.calls[len(h.api.calls)-1].text
	if embedded != SyntheticText(m.Snapshot()) || strings.Contains(embedded, "FILE_URL") {
		t.Fatalf("embedded text: %q", embedded)
	}
	if want := "Graph Lab Sheet. Topic: graph traversal. Category: Lab. Week 4"; embedded != want {
		t.Fatalf("synthetic text: want=%q got=%q", want, embedded)
	}
}

func TestUpsertChunksReplacesPreviousSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")

	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"a recursion", "b recursion", "c recursion"}, m.Snapshot()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"tree"}, m.Snapshot()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	rows, _ := h.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, m.ID)
	if len(rows) != 1 || rows[0].Content != "tree" {
		t.Fatalf("rows after replace: %+v", rows)
	}
	if h.vectors.Len(VectorNamespace) != 1 {
		t.Fatalf("stale vectors left behind: %d", h.vectors.Len(VectorNamespace))
	}
}

func TestReplaceChunksThreeThousandCharacterMaterial(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	body := strings.Repeat("Recursion splits a problem into smaller copies of itself. ", 60)[:3000]
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) { m.Content = body })

	n, err := h.store.ReplaceChunks(ctx, m)
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if n != 2 {
		t.Fatalf("chunks: want=2 got=%d", n)
	}
	rows, _ := h.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, m.ID)
	for _, r := range rows {
		if len([]rune(r.Content)) > 2200 {
			t.Fatalf("chunk %d too long: %d", r.ChunkIndex, len(r.Content))
		}
	}
}

func TestReplaceChunksWithoutContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) { m.Content = "  " })
	if _, err := h.store.ReplaceChunks(ctx, m); !errors.Is(err, ErrNoContent) {
		t.Fatalf("want ErrNoContent, got %v", err)
	}
}

func TestSimilaritySearchRespectsLimitAndMinScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
		if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion recursion", "sort loop"}, m.Snapshot()); err != nil {
			t.Fatalf("UpsertChunks: %v", err)
		}
	}
	q := keywordVector("recursion")
	hits, err := h.store.SimilaritySearch(ctx, q, SearchOptions{Limit: 3, MinScore: 0.5})
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) == 0 || len(hits) > 3 {
		t.Fatalf("hits: want 1..3 got=%d", len(hits))
	}
	for _, hit := range hits {
		if hit.Score < 0.5 {
			t.Fatalf("hit below min score: %+v", hit)
		}
		if !strings.Contains(hit.Content, "recursion") {
			t.Fatalf("unexpected hit content: %q", hit.Content)
		}
	}

	none, err := h.store.SimilaritySearch(ctx, q, SearchOptions{Limit: 3, MinScore: 1.01})
	if err != nil || len(none) != 0 {
		t.Fatalf("impossible min score: hits=%v err=%v", none, err)
	}
}

func TestSimilaritySearchUsesFreshMaterialMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion"}, m.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if err := h.materials.UpdateFields(dbc, m.ID, map[string]interface{}{"title": "Recursion, revised", "category": domain.CategoryLab}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	hits, err := h.store.SimilaritySearch(ctx, keywordVector("recursion"), SearchOptions{Limit: 5})
	if err != nil || len(hits) != 1 {
		t.Fatalf("hits=%v err=%v", hits, err)
	}
	if hits[0].Material.Title != "Recursion, revised" || hits[0].Snapshot.Title != "Intro to Recursion" {
		t.Fatalf("fresh=%q snapshot=%q", hits[0].Material.Title, hits[0].Snapshot.Title)
	}

	// The vector still carries the old category; the fresh lookup excludes it.
	theory, err := h.store.SimilaritySearch(ctx, keywordVector("recursion"), SearchOptions{Limit: 5, Category: domain.CategoryTheory})
	if err != nil || len(theory) != 0 {
		t.Fatalf("stale category should be filtered: hits=%v err=%v", theory, err)
	}

	if err := h.materials.Delete(dbc, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, _ := h.store.SimilaritySearch(ctx, keywordVector("recursion"), SearchOptions{Limit: 5})
	if len(gone) != 0 {
		t.Fatalf("deleted material should not be returned: %v", gone)
	}
}

func TestDeleteMaterialRemovesChunksAndVectors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"a recursion", "b tree"}, m.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	n, err := h.store.DeleteMaterial(ctx, m.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteMaterial: n=%d err=%v", n, err)
	}
	if h.vectors.Len(VectorNamespace) != 0 {
		t.Fatalf("vectors left: %d", h.vectors.Len(VectorNamespace))
	}
}

func TestWarmRebuildsIndexFromRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"a recursion", "b tree"}, m.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	rows, _ := h.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, m.ID)
	ids := []string{rows[0].ID.String(), rows[1].ID.String()}
	if err := h.vectors.DeleteIDs(ctx, VectorNamespace, ids); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}

	n, err := h.store.Warm(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Warm: n=%d err=%v", n, err)
	}
	hits, _ := h.store.SimilaritySearch(ctx, keywordVector("tree"), SearchOptions{Limit: 1, MinScore: 0.5})
	if len(hits) != 1 || hits[0].Content != "b tree" {
		t.Fatalf("search after warm: %+v", hits)
	}
}

func TestStatsReportsCoverage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	embedded := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) {
		m.Title = "Unembedded Lab"
		m.Category = domain.CategoryLab
	})
	if _, err := h.store.UpsertChunks(ctx, embedded.ID, []string{"x recursion", "y recursion"}, embedded.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	st, err := h.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalMaterials != 2 || st.EmbeddedMaterials != 1 || st.TotalChunks != 2 || st.Coverage != 50 {
		t.Fatalf("stats: %+v", st)
	}
	if len(st.Missing) != 1 || st.Missing[0].Title != "Unembedded Lab" {
		t.Fatalf("missing: %+v", st.Missing)
	}
	if st.ByCategory["Theory"].Chunks != 2 || st.ByCategory["Lab"].Embedded != 0 {
		t.Fatalf("by category: %+v", st.ByCategory)
	}
}
