package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func TestVideoCreateQueuesJob(t *testing.T) {
	log := testutil.Logger(t)
	videos := repos.NewVideoRepo(testutil.DB(t), log)
	jobs := &fakeSubmitter{}
	svc := NewVideoService(log, videos, jobs, &fakeBucket{})
	ctx := context.Background()

	v, job, err := svc.Create(ctx, "user-1", CreateVideoInput{Title: "Sorting", Prompt: "Animate bubble sort", AspectRatio: "9:16"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.Status != domain.VideoPending || v.JobID == nil || *v.JobID != job.ID {
		t.Fatalf("video: %+v", v)
	}
	spec := jobs.specs[0]
	if spec.Type != domain.JobTypeVideoGenerate || spec.Payload["video_id"] != v.ID.String() || spec.EntityID != v.ID {
		t.Fatalf("spec: %+v", spec)
	}

	got, err := svc.Get(ctx, "user-1", v.ID)
	if err != nil || got.JobID == nil {
		t.Fatalf("Get: %+v err=%v", got, err)
	}
	if _, err := svc.Get(ctx, "user-2", v.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}
}

func TestVideoCreateSubmitFailureMarksFailed(t *testing.T) {
	log := testutil.Logger(t)
	videos := repos.NewVideoRepo(testutil.DB(t), log)
	svc := NewVideoService(log, videos, &fakeSubmitter{err: errors.New("db down")}, &fakeBucket{})
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, "user-1", CreateVideoInput{Title: "Sorting", Prompt: "p"}); err == nil {
		t.Fatalf("expected error")
	}
	list, err := videos.ListByOwner(dbctx.Context{Ctx: ctx}, "user-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByOwner: n=%d err=%v", len(list), err)
	}
	if list[0].Status != domain.VideoFailed || list[0].Error == "" {
		t.Fatalf("video: %+v", list[0])
	}
}

func TestVideoCreateValidation(t *testing.T) {
	log := testutil.Logger(t)
	svc := NewVideoService(log, repos.NewVideoRepo(testutil.DB(t), log), &fakeSubmitter{}, &fakeBucket{})
	cases := []CreateVideoInput{
		{Title: "t"},
		{Prompt: "p"},
		{Title: "t", Prompt: "p", AspectRatio: "4:3"},
	}
	for _, in := range cases {
		if _, _, err := svc.Create(context.Background(), "user-1", in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("input %+v: want ErrInvalidArgument, got=%v", in, err)
		}
	}
}

func TestVideoDeleteRemovesStoredObject(t *testing.T) {
	log := testutil.Logger(t)
	videos := repos.NewVideoRepo(testutil.DB(t), log)
	bucket := &fakeBucket{}
	svc := NewVideoService(log, videos, &fakeSubmitter{}, bucket)
	ctx := context.Background()

	v, _, err := svc.Create(ctx, "user-1", CreateVideoInput{Title: "Sorting", Prompt: "p"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := videos.UpdateFields(dbctx.Context{Ctx: ctx}, v.ID, map[string]interface{}{
		"status":            domain.VideoCompleted,
		"storage_public_id": "videos/video/x.mp4",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	if err := svc.Delete(ctx, "user-2", v.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got=%v", err)
	}
	if err := svc.Delete(ctx, "user-1", v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(bucket.deleted) != 1 || bucket.deleted[0] != "videos/video/x.mp4" {
		t.Fatalf("bucket deletes: %v", bucket.deleted)
	}
	list, _ := svc.List(ctx, "user-1")
	if len(list) != 0 {
		t.Fatalf("want no videos, got=%d", len(list))
	}
}
