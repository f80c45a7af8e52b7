package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/apierr"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

type materialFixture struct {
	svc    MaterialService
	repo   repos.MaterialRepo
	bucket *fakeBucket
	jobs   *fakeSubmitter
	index  *fakeIndex
}

func newMaterialFixture(t *testing.T) materialFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := materialFixture{
		repo:   repos.NewMaterialRepo(db, log),
		bucket: &fakeBucket{},
		jobs:   &fakeSubmitter{},
		index:  &fakeIndex{},
	}
	f.svc = NewMaterialService(log, f.repo, f.index, f.bucket, f.jobs)
	return f
}

func validUpload() UploadMaterialInput {
	return UploadMaterialInput{
		Title:       "Recursion notes",
		CourseName:  "CS101",
		Category:    domain.CategoryTheory,
		Type:        domain.TypeText,
		Topic:       "recursion",
		Week:        2,
		Tags:        []string{"cs", "CS", " recursion "},
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("Recursion is a function calling itself."),
	}
}

func TestUploadStoresFileAndQueuesEmbedding(t *testing.T) {
	f := newMaterialFixture(t)
	ctx := context.Background()

	m, job, err := f.svc.Upload(ctx, "user-1", validUpload())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if m.Content != "Recursion is a function calling itself." {
		t.Fatalf("content: got=%q", m.Content)
	}
	if m.FileURL == "" || m.StoragePublicID == "" {
		t.Fatalf("expected stored file, got url=%q id=%q", m.FileURL, m.StoragePublicID)
	}
	if string(m.Tags) != `["cs","recursion"]` {
		t.Fatalf("tags: got=%s", m.Tags)
	}
	if job == nil || job.JobType != domain.JobTypeEmbedMaterial {
		t.Fatalf("expected embed job, got=%+v", job)
	}
	spec := f.jobs.specs[0]
	if spec.Payload["material_id"] != m.ID.String() || spec.Payload["force"] != false {
		t.Fatalf("payload: got=%v", spec.Payload)
	}
	if _, err := f.repo.GetByID(dbctx.Context{Ctx: ctx}, m.ID); err != nil {
		t.Fatalf("material not persisted: %v", err)
	}
}

func TestUploadStorageFailurePersistsNothing(t *testing.T) {
	f := newMaterialFixture(t)
	f.bucket.uploadErr = errors.New("bucket down")
	ctx := context.Background()

	_, _, err := f.svc.Upload(ctx, "user-1", validUpload())
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadGateway || ae.Code != "storage_failed" {
		t.Fatalf("want storage_failed 502, got=%v", err)
	}
	list, err := f.repo.List(dbctx.Context{Ctx: ctx}, repos.MaterialFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("want no materials, got=%d", len(list))
	}
	if len(f.jobs.specs) != 0 {
		t.Fatalf("want no jobs, got=%d", len(f.jobs.specs))
	}
}

func TestUploadUnparseableFileKeepsFileReference(t *testing.T) {
	f := newMaterialFixture(t)
	in := validUpload()
	in.Type = domain.TypePDF
	in.Filename = "broken.pdf"
	in.ContentType = "application/pdf"
	in.Data = []byte("not a pdf")

	m, _, err := f.svc.Upload(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ref, ok := m.Body().(domain.FileReference)
	if !ok || ref.URL != m.FileURL {
		t.Fatalf("want file reference to %q, got=%#v", m.FileURL, m.Body())
	}
}

func TestUploadValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*UploadMaterialInput)
	}{
		{"missing title", func(in *UploadMaterialInput) { in.Title = " " }},
		{"bad category", func(in *UploadMaterialInput) { in.Category = "Seminar" }},
		{"bad type", func(in *UploadMaterialInput) { in.Type = "video" }},
		{"week zero", func(in *UploadMaterialInput) { in.Week = 0 }},
		{"no file", func(in *UploadMaterialInput) { in.Data = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMaterialFixture(t)
			in := validUpload()
			tc.mutate(&in)
			if _, _, err := f.svc.Upload(context.Background(), "user-1", in); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got=%v", err)
			}
		})
	}
}

func TestUploadLinkWithoutFile(t *testing.T) {
	f := newMaterialFixture(t)
	in := validUpload()
	in.Type = domain.TypeLink
	in.Data = nil
	in.FileURL = "https://example.edu/lecture"

	m, _, err := f.svc.Upload(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if m.FileURL != in.FileURL || len(f.bucket.uploads) != 0 {
		t.Fatalf("link material should not touch storage: url=%q uploads=%d", m.FileURL, len(f.bucket.uploads))
	}
	if !isFileReference(m) {
		t.Fatalf("want file reference content, got=%q", m.Content)
	}
}

func TestUpdateRequiresOwnerAndReembedsOnTitleChange(t *testing.T) {
	f := newMaterialFixture(t)
	ctx := context.Background()
	m, _, err := f.svc.Upload(ctx, "user-1", validUpload())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	f.jobs.specs = nil

	title := "Recursion, revised"
	if _, _, err := f.svc.Update(ctx, "user-2", m.ID, MaterialPatch{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}

	updated, job, err := f.svc.Update(ctx, "user-1", m.ID, MaterialPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title: got=%q", updated.Title)
	}
	if job == nil || f.jobs.specs[0].Payload["force"] != true {
		t.Fatalf("want forced re-embed job, got=%v", f.jobs.specs)
	}

	desc := "extra reading"
	_, job, err = f.svc.Update(ctx, "user-1", m.ID, MaterialPatch{Description: &desc})
	if err != nil {
		t.Fatalf("Update description: %v", err)
	}
	if job != nil {
		t.Fatalf("description change should not re-embed")
	}
}

func TestDeleteCascadesToIndexAndStorage(t *testing.T) {
	f := newMaterialFixture(t)
	ctx := context.Background()
	m, _, err := f.svc.Upload(ctx, "user-1", validUpload())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := f.svc.Delete(ctx, "user-2", m.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}
	if err := f.svc.Delete(ctx, "user-1", m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.index.deleted) != 1 || f.index.deleted[0] != m.ID {
		t.Fatalf("index delete: got=%v", f.index.deleted)
	}
	if len(f.bucket.deleted) != 1 || f.bucket.deleted[0] != m.StoragePublicID {
		t.Fatalf("bucket delete: got=%v", f.bucket.deleted)
	}
	if _, err := f.svc.Get(ctx, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got=%v", err)
	}
}
