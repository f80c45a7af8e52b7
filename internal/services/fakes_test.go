package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/jobs"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
)

type fakeBucket struct {
	mu        sync.Mutex
	uploadErr error
	objects   map[string][]byte
	deleted   []string
	uploads   []gcp.UploadInput
}

func (b *fakeBucket) Upload(ctx context.Context, in gcp.UploadInput) (gcp.StoredObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return gcp.StoredObject{}, b.uploadErr
	}
	data, _ := io.ReadAll(in.Body)
	key := gcp.ObjectKey(in.Folder, in.Kind, in.Filename, uuid.NewString())
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	b.uploads = append(b.uploads, in)
	return gcp.StoredObject{URL: b.PublicURL(key), PublicID: key, Size: int64(len(data))}, nil
}

func (b *fakeBucket) Delete(ctx context.Context, publicID string, kind gcp.ResourceKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, publicID)
	b.deleted = append(b.deleted, publicID)
	return nil
}

func (b *fakeBucket) Open(ctx context.Context, publicID string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[publicID]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) PublicURL(publicID string) string {
	return "https://cdn.test/" + publicID
}

type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	specs []jobs.Spec
}

func (s *fakeSubmitter) Submit(ctx context.Context, spec jobs.Spec) (*domain.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.specs = append(s.specs, spec)
	id := spec.EntityID
	return &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: spec.OwnerUserID,
		JobType:     spec.Type,
		EntityType:  spec.EntityType,
		EntityID:    &id,
		Status:      domain.JobStatusQueued,
	}, nil
}

type fakeIndex struct {
	deleted []uuid.UUID
	report  rag.EmbedReport
	forced  []bool
	stats   rag.Stats
}

func (f *fakeIndex) EmbedMaterial(ctx context.Context, m *domain.Material, force bool) rag.EmbedReport {
	f.forced = append(f.forced, force)
	r := f.report
	r.MaterialID = m.ID
	r.Title = m.Title
	if r.Status == "" {
		r.Status = rag.EmbedStatusEmbedded
	}
	return r
}

func (f *fakeIndex) DeleteMaterial(ctx context.Context, materialID uuid.UUID) (int, error) {
	f.deleted = append(f.deleted, materialID)
	return 3, nil
}

func (f *fakeIndex) Stats(ctx context.Context) (rag.Stats, error) {
	return f.stats, nil
}

type fakeRAG struct {
	ctx     *rag.RAGContext
	sources []domain.Source
	err     error
	queries []string
	opts    []rag.ContextOptions
}

func (f *fakeRAG) GetContext(ctx context.Context, query string, opts rag.ContextOptions) (*rag.RAGContext, error) {
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if f.ctx == nil {
		return &rag.RAGContext{}, nil
	}
	return f.ctx, nil
}

func (f *fakeRAG) Search(ctx context.Context, query string, opts rag.ContextOptions) ([]domain.Source, error) {
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	return f.sources, f.err
}

type fakeAnswerer struct {
	answer   string
	deltas   []string
	err      error
	requests []generation.AnswerRequest
}

func (f *fakeAnswerer) Answer(ctx context.Context, req generation.AnswerRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

func (f *fakeAnswerer) StreamAnswer(ctx context.Context, req generation.AnswerRequest, onDelta func(string) error) error {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return f.err
	}
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

type fakeGenerator struct {
	result   *generation.Result
	err      error
	requests []generation.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeValidator struct {
	score int
	calls int
}

func (f *fakeValidator) Validate(ctx context.Context, response, query string, opts validation.Options) domain.ValidationResult {
	f.calls++
	return domain.ValidationResult{OverallScore: f.score, Status: domain.StatusForScore(f.score)}
}
