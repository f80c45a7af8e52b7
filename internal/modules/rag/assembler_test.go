package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
)

func TestGetContextWithoutHitsIsEmptyNotNil(t *testing.T) {
	h := newHarness(t)
	got, err := h.assembler.GetContext(context.Background(), "recursion", ContextOptions{})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if got.Context != "" || got.Sources == nil || got.FileURLs == nil || len(got.Sources) != 0 || len(got.FileURLs) != 0 {
		t.Fatalf("want empty non-nil context, got %+v", got)
	}
	if !got.Empty() {
		t.Fatalf("Empty() should report true")
	}
}

func TestGetContextRejectsBlankQuery(t *testing.T) {
	h := newHarness(t)
	if _, err := h.assembler.GetContext(context.Background(), "   ", ContextOptions{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if h.api.callCount() != 0 {
		t.Fatalf("blank query should not be embedded")
	}
}

func TestGetContextDeduplicatesSources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	other := testutil.SeedMaterial(t, ctx, h.db, "user-b", func(m *domain.Material) { m.Title = "Recursive Trees" })
	if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion base case", "recursion stack depth", "recursion memo"}, m.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if _, err := h.store.UpsertChunks(ctx, other.ID, []string{"tree recursion"}, other.Snapshot()); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	got, err := h.assembler.GetContext(ctx, "recursion", ContextOptions{Limit: 4})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("sources: want=2 got=%d (%+v)", len(got.Sources), got.Sources)
	}
	seen := map[uuid.UUID]bool{}
	for _, s := range got.Sources {
		if seen[s.MaterialID] {
			t.Fatalf("duplicate source %s", s.MaterialID)
		}
		seen[s.MaterialID] = true
	}
	if n := strings.Count(got.Context, contextSeparator); n != 3 {
		t.Fatalf("context blocks: want 4 blocks got separators=%d\n%s", n, got.Context)
	}
	if !strings.Contains(got.Context, "[Intro to Recursion]:\n") {
		t.Fatalf("context missing title header:\n%s", got.Context)
	}
}

func TestAssembleSplitsFileReferencesFromText(t *testing.T) {
	textID, fileID := uuid.New(), uuid.New()
	sentinel := domain.EncodeContent(domain.FileReference{URL: "https://files.example/scan.pdf"})
	hits := []SearchHit{
		{MaterialID: fileID, Content: sentinel, Score: 0.9, Material: domain.ChunkMetadata{Title: "Scanned Notes", Type: domain.TypePDF}},
		{MaterialID: textID, Content: "loops repeat work", Score: 0.8, Material: domain.ChunkMetadata{Title: "Loops"}},
		{MaterialID: fileID, Content: sentinel, Score: 0.7, Material: domain.ChunkMetadata{Title: "Scanned Notes", Type: domain.TypePDF}},
	}
	got := Assemble(hits)
	if got.Context != "[Loops]:\nloops repeat work" {
		t.Fatalf("context: %q", got.Context)
	}
	if len(got.FileURLs) != 1 || got.FileURLs[0].URL != "https://files.example/scan.pdf" || got.FileURLs[0].MaterialID != fileID {
		t.Fatalf("file urls: %+v", got.FileURLs)
	}
	if len(got.Sources) != 2 || got.Sources[0].Score != 0.9 || got.Sources[0].Excerpt != "" {
		t.Fatalf("sources: %+v", got.Sources)
	}
}

func TestGetContextParseFailureFallsBackToFileURL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) {
		m.Title = "Graph Lab"
		m.Topic = "graph search"
		m.Category = domain.CategoryLab
		m.Type = domain.TypePDF
		m.Content = ""
		m.FileURL = "https://files.example/graph-lab.pdf"
	})
	if _, err := h.store.ReplaceChunks(ctx, m); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	got, err := h.assembler.GetContext(ctx, "graph lab", ContextOptions{})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if got.Context != "" {
		t.Fatalf("file material leaked into text context: %q", got.Context)
	}
	if len(got.FileURLs) != 1 || got.FileURLs[0].URL != m.FileURL || got.FileURLs[0].Title != "Graph Lab" {
		t.Fatalf("file urls: %+v", got.FileURLs)
	}
	if got.Empty() {
		t.Fatalf("context with file references is not empty")
	}
}

func TestSearchFiltersByCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	theory := testutil.SeedMaterial(t, ctx, h.db, "user-a")
	lab := testutil.SeedMaterial(t, ctx, h.db, "user-a", func(m *domain.Material) {
		m.Title = "Recursion Lab"
		m.Category = domain.CategoryLab
	})
	for _, m := range []*domain.Material{theory, lab} {
		if _, err := h.store.UpsertChunks(ctx, m.ID, []string{"recursion exercise"}, m.Snapshot()); err != nil {
			t.Fatalf("UpsertChunks: %v", err)
		}
	}
	got, err := h.assembler.Search(ctx, "recursion", ContextOptions{Category: domain.CategoryLab})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].MaterialID != lab.ID {
		t.Fatalf("sources: %+v", got)
	}
}
