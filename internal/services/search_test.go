package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func TestSearchModes(t *testing.T) {
	src := []domain.Source{{MaterialID: uuid.New(), Title: "Trees", Score: 0.77}}
	r := &fakeRAG{
		sources: src,
		ctx: &rag.RAGContext{
			Context:  "[Source 1: Trees]\nbinary trees",
			Sources:  src,
			FileURLs: []domain.FileSource{{URL: "https://cdn.test/trees.pdf"}},
		},
	}
	a := &fakeAnswerer{answer: "Trees are hierarchical."}
	svc := NewSearchService(testutil.Logger(t), r, a)
	ctx := context.Background()

	res, err := svc.Search(ctx, SearchRequest{Query: "trees", Limit: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Citations) != 1 || res.Response != "" || len(a.requests) != 0 {
		t.Fatalf("search mode: %+v", res)
	}
	if r.opts[0].Limit != 3 {
		t.Fatalf("limit not forwarded: %+v", r.opts[0])
	}

	res, err = svc.Search(ctx, SearchRequest{Query: "trees", Mode: ModeRAG})
	if err != nil {
		t.Fatalf("rag: %v", err)
	}
	if res.Response != a.answer || len(res.FileURLs) != 1 {
		t.Fatalf("rag mode: %+v", res)
	}
	if len(a.requests[0].Files) != 1 {
		t.Fatalf("file references not passed to the model")
	}

	cases := []SearchRequest{{Query: " "}, {Query: "x", Mode: "fuzzy"}}
	for _, req := range cases {
		if _, err := svc.Search(ctx, req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("%+v: want ErrInvalidArgument, got=%v", req, err)
		}
	}

	a.err = generation.ErrSafety
	if _, err := svc.Search(ctx, SearchRequest{Query: "x", Mode: ModeRAG}); !errors.Is(err, generation.ErrSafety) {
		t.Fatalf("want ErrSafety, got=%v", err)
	}
}

func TestEmbeddingBackfillReportsMissingIDs(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	m := testutil.SeedMaterial(t, ctx, db, "user-1")
	index := &fakeIndex{}
	svc := NewEmbeddingService(log, repos.NewMaterialRepo(db, log), index)

	missing := uuid.New()
	reports, err := svc.Backfill(ctx, []uuid.UUID{m.ID, missing}, true)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports: %+v", reports)
	}
	if reports[0].MaterialID != m.ID || reports[0].Status != rag.EmbedStatusEmbedded {
		t.Fatalf("first report: %+v", reports[0])
	}
	if reports[1].MaterialID != missing || reports[1].Status != rag.EmbedStatusFailed {
		t.Fatalf("missing report: %+v", reports[1])
	}
	if len(index.forced) != 1 || !index.forced[0] {
		t.Fatalf("force flag: %v", index.forced)
	}

	all, err := svc.Backfill(ctx, nil, false)
	if err != nil || len(all) != 1 {
		t.Fatalf("Backfill all: n=%d err=%v", len(all), err)
	}
	if _, err := repos.NewMaterialRepo(db, log).GetByID(dbctx.Context{Ctx: ctx}, m.ID); err != nil {
		t.Fatalf("material should remain: %v", err)
	}
}
