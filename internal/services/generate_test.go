package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/apierr"
)

type generateFixture struct {
	svc       GenerateService
	rag       *fakeRAG
	gen       *fakeGenerator
	validator *fakeValidator
	bucket    *fakeBucket
}

func newGenerateFixture(t *testing.T) generateFixture {
	t.Helper()
	log := testutil.Logger(t)
	f := generateFixture{
		rag: &fakeRAG{ctx: &rag.RAGContext{
			Context:  "[Source 1: Recursion]\nbase case first",
			Sources:  []domain.Source{{MaterialID: uuid.New(), Title: "Recursion", Score: 0.9}},
			FileURLs: []domain.FileSource{{URL: "https://cdn.test/slides.pdf", Title: "Slides"}},
		}},
		gen:       &fakeGenerator{result: &generation.Result{Type: generation.TypeNotes, Content: "# Notes"}},
		validator: &fakeValidator{score: 85},
		bucket:    &fakeBucket{},
	}
	f.svc = NewGenerateService(log, f.rag, f.gen, f.validator, f.bucket, repos.NewAiMaterialRepo(testutil.DB(t), log))
	return f
}

func TestGenerateUsesRAGContextForTopic(t *testing.T) {
	f := newGenerateFixture(t)
	out, err := f.svc.Generate(context.Background(), "", GenerateInput{
		Type:     generation.TypeNotes,
		Title:    "Recursion",
		Topic:    "base cases",
		Category: domain.CategoryTheory,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if f.rag.queries[0] != "Recursion base cases" || f.rag.opts[0].Category != domain.CategoryTheory {
		t.Fatalf("rag call: queries=%v opts=%v", f.rag.queries, f.rag.opts)
	}
	req := f.gen.requests[0]
	if req.Input.Context != f.rag.ctx.Context || len(req.Files) != 1 {
		t.Fatalf("request context/files: %+v", req)
	}
	if out.Content != "# Notes" || len(out.Sources) != 1 || out.Validation != nil || out.Saved != nil {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestGenerateSourceContentSkipsRetrieval(t *testing.T) {
	f := newGenerateFixture(t)
	_, err := f.svc.Generate(context.Background(), "user-1", GenerateInput{
		Type:          generation.TypeNotes,
		SourceContent: "Pasted lecture text",
		FileURL:       "https://example.edu/handout.pdf",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(f.rag.queries) != 0 {
		t.Fatalf("retrieval should be skipped, got=%v", f.rag.queries)
	}
	req := f.gen.requests[0]
	if req.Input.Context != "Pasted lecture text" || len(req.Files) != 1 || req.Files[0].URL != "https://example.edu/handout.pdf" {
		t.Fatalf("request: %+v", req)
	}
}

func TestGenerateFileURLRequiresActor(t *testing.T) {
	f := newGenerateFixture(t)
	_, err := f.svc.Generate(context.Background(), "", GenerateInput{
		Type:    generation.TypeNotes,
		FileURL: "http://169.254.169.254/latest/meta-data/",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}
	if len(f.gen.requests) != 0 {
		t.Fatalf("generator must not run, got=%d requests", len(f.gen.requests))
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	f := newGenerateFixture(t)
	cases := []GenerateInput{
		{Type: "essay", Topic: "x"},
		{Type: generation.TypeNotes},
	}
	for _, in := range cases {
		if _, err := f.svc.Generate(context.Background(), "", in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("input %+v: want ErrInvalidArgument, got=%v", in, err)
		}
	}
}

func TestGenerateClassifiesModelErrors(t *testing.T) {
	f := newGenerateFixture(t)
	f.gen.err = context.DeadlineExceeded
	_, err := f.svc.Generate(context.Background(), "", GenerateInput{Type: generation.TypeNotes, Topic: "loops"})
	if !errors.Is(err, generation.ErrTimeout) {
		t.Fatalf("want ErrTimeout, got=%v", err)
	}

	f.gen.err = errors.New("boom")
	_, err = f.svc.Generate(context.Background(), "", GenerateInput{Type: generation.TypeNotes, Topic: "loops"})
	if !errors.Is(err, generation.ErrFailed) {
		t.Fatalf("want ErrFailed, got=%v", err)
	}
}

func TestGeneratePodcastUploadsAudio(t *testing.T) {
	f := newGenerateFixture(t)
	f.gen.result = &generation.Result{
		Type:    generation.TypePodcast,
		Content: "Host: hi\nGuest: hello",
		Audio:   &generation.PodcastAudio{WAV: []byte("RIFF...."), Duration: 90 * time.Second},
	}
	out, err := f.svc.Generate(context.Background(), "user-1", GenerateInput{Type: generation.TypePodcast, Topic: "graphs", Save: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.AudioURL == "" || out.DurationSeconds != 90 {
		t.Fatalf("audio: url=%q duration=%v", out.AudioURL, out.DurationSeconds)
	}
	up := f.bucket.uploads[0]
	if up.Kind != "audio" || up.ContentType != "audio/wav" {
		t.Fatalf("upload: %+v", up)
	}
	if out.Saved == nil || out.Saved.AudioURL != out.AudioURL || out.Saved.OwnerID != "user-1" {
		t.Fatalf("saved: %+v", out.Saved)
	}

	f.bucket.uploadErr = errors.New("down")
	_, err = f.svc.Generate(context.Background(), "user-1", GenerateInput{Type: generation.TypePodcast, Topic: "graphs"})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadGateway {
		t.Fatalf("want 502, got=%v", err)
	}
}

func TestGenerateValidateAndSavedMaterialOwnership(t *testing.T) {
	f := newGenerateFixture(t)
	ctx := context.Background()
	out, err := f.svc.Generate(ctx, "user-1", GenerateInput{Type: generation.TypeNotes, Topic: "sorting", Save: true, Validate: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Validation == nil || out.Validation.OverallScore != 85 || f.validator.calls != 1 {
		t.Fatalf("validation: %+v", out.Validation)
	}
	if out.Saved.Title != "sorting" {
		t.Fatalf("saved title: got=%q", out.Saved.Title)
	}

	list, err := f.svc.ListSaved(ctx, "user-1", "")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSaved: n=%d err=%v", len(list), err)
	}
	if err := f.svc.DeleteSaved(ctx, "user-2", out.Saved.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}
	if err := f.svc.DeleteSaved(ctx, "user-1", out.Saved.ID); err != nil {
		t.Fatalf("DeleteSaved: %v", err)
	}
	list, _ = f.svc.ListSaved(ctx, "user-1", "")
	if len(list) != 0 {
		t.Fatalf("want empty list after delete, got=%d", len(list))
	}
}
