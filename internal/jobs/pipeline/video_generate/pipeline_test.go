package video_generate

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	jobrt "github.com/yungbote/skooly-backend/internal/jobs/runtime"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
)

type fakeVideoAPI struct {
	mu        sync.Mutex
	startErr  error
	doneAfter int
	final     gemini.VideoStatus
	polls     int
	starts    []gemini.VideoConfig
	fetched   []string
	onDone    func()
}

func (f *fakeVideoAPI) StartVideo(_ context.Context, _ string, vc gemini.VideoConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, vc)
	if f.startErr != nil {
		return "", f.startErr
	}
	return "operations/op-1", nil
}

func (f *fakeVideoAPI) PollVideo(_ context.Context, name string) (gemini.VideoStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if name != "operations/op-1" {
		return gemini.VideoStatus{}, errors.New("unknown operation")
	}
	if f.doneAfter > 0 && f.polls >= f.doneAfter {
		if f.onDone != nil {
			f.onDone()
		}
		return f.final, nil
	}
	return gemini.VideoStatus{}, nil
}

func (f *fakeVideoAPI) FetchVideo(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, uri)
	return []byte("mp4-bytes"), nil
}

type memBucket struct {
	mu       sync.Mutex
	objects  map[string][]byte
	onUpload func()
}

func (b *memBucket) Upload(_ context.Context, in gcp.UploadInput) (gcp.StoredObject, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return gcp.StoredObject{}, err
	}
	key := gcp.ObjectKey(in.Folder, in.Kind, in.Filename, "obj")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	if b.onUpload != nil {
		b.onUpload()
	}
	return gcp.StoredObject{URL: b.PublicURL(key), PublicID: key, Size: int64(len(data))}, nil
}

func (b *memBucket) Delete(_ context.Context, publicID string, _ gcp.ResourceKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, publicID)
	return nil
}

func (b *memBucket) Open(_ context.Context, publicID string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[publicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (b *memBucket) PublicURL(publicID string) string { return "https://cdn.test/" + publicID }

type fixture struct {
	api      *fakeVideoAPI
	bucket   *memBucket
	videos   repos.VideoRepo
	jobs     repos.JobRunRepo
	pipeline *Pipeline
}

func newFixture(t *testing.T, api *fakeVideoAPI) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		api:    api,
		bucket: &memBucket{},
		videos: repos.NewVideoRepo(db, log),
		jobs:   repos.NewJobRunRepo(db, log),
	}
	f.pipeline = New(log, f.videos, api, f.bucket, Config{PollInterval: time.Millisecond, MaxPolls: 3})
	return f
}

func (f *fixture) seedVideo(t *testing.T, mutate ...func(*domain.VideoMaterial)) *domain.VideoMaterial {
	t.Helper()
	v := &domain.VideoMaterial{
		OwnerID: "user-a",
		Title:   "Binary search",
		Prompt:  "Animate binary search on a sorted array",
		Status:  domain.VideoPending,
	}
	for _, fn := range mutate {
		fn(v)
	}
	if _, err := f.videos.Create(dbctx.Context{Ctx: context.Background()}, v); err != nil {
		t.Fatalf("Create video: %v", err)
	}
	return v
}

func (f *fixture) run(t *testing.T, v *domain.VideoMaterial) (*domain.JobRun, *domain.VideoMaterial) {
	t.Helper()
	job := f.runJob(t, v)
	got, err := f.videos.GetByID(dbctx.Context{Ctx: context.Background()}, v.ID)
	if err != nil {
		t.Fatalf("GetByID video: %v", err)
	}
	return job, got
}

func (f *fixture) runJob(t *testing.T, v *domain.VideoMaterial) *domain.JobRun {
	t.Helper()
	ctx := context.Background()
	job := &domain.JobRun{
		OwnerUserID: v.OwnerID,
		JobType:     domain.JobTypeVideoGenerate,
		Status:      domain.JobStatusRunning,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(`{"video_id":"` + v.ID.String() + `"}`)),
	}
	if _, err := f.jobs.Create(dbctx.Context{Ctx: ctx}, []*domain.JobRun{job}); err != nil {
		t.Fatalf("Create job: %v", err)
	}
	if err := f.pipeline.Run(jobrt.NewContext(ctx, job, f.jobs, testutil.Logger(t))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	gotJob, err := f.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil {
		t.Fatalf("GetByID job: %v", err)
	}
	return gotJob
}

func TestVideoJobCompletes(t *testing.T) {
	api := &fakeVideoAPI{doneAfter: 2, final: gemini.VideoStatus{Done: true, VideoURI: "files/v1", MIMEType: "video/mp4"}}
	f := newFixture(t, api)
	v := f.seedVideo(t)

	job, got := f.run(t, v)
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("job: want succeeded got %s (%s)", job.Status, job.Error)
	}
	if got.Status != domain.VideoCompleted || got.OperationName != "operations/op-1" {
		t.Fatalf("video: %+v", got)
	}
	if got.VideoURL != "https://cdn.test/videos/video/obj.mp4" || got.StoragePublicID != "videos/video/obj.mp4" {
		t.Fatalf("video url: %q public id: %q", got.VideoURL, got.StoragePublicID)
	}
	if string(f.bucket.objects[got.StoragePublicID]) != "mp4-bytes" {
		t.Fatalf("uploaded bytes mismatch")
	}
	if len(api.starts) != 1 || api.starts[0].AspectRatio != "16:9" || api.polls != 2 {
		t.Fatalf("api usage: starts=%+v polls=%d", api.starts, api.polls)
	}
	if len(api.fetched) != 1 || api.fetched[0] != "files/v1" {
		t.Fatalf("fetch: %v", api.fetched)
	}
	if got.PollCount != 2 {
		t.Fatalf("poll count: want 2 got %d", got.PollCount)
	}
}

func TestVideoJobUsesInlineBytes(t *testing.T) {
	api := &fakeVideoAPI{doneAfter: 1, final: gemini.VideoStatus{Done: true, Bytes: []byte("inline")}}
	f := newFixture(t, api)
	v := f.seedVideo(t, func(v *domain.VideoMaterial) { v.AspectRatio = "9:16" })

	_, got := f.run(t, v)
	if got.Status != domain.VideoCompleted || len(api.fetched) != 0 {
		t.Fatalf("video=%+v fetched=%v", got, api.fetched)
	}
	if api.starts[0].AspectRatio != "9:16" {
		t.Fatalf("aspect ratio: %q", api.starts[0].AspectRatio)
	}
}

func TestVideoJobFailsPermanently(t *testing.T) {
	cases := []struct {
		name      string
		api       *fakeVideoAPI
		wantError string
		wantPolls int
	}{
		{
			name:      "poll cap",
			api:       &fakeVideoAPI{},
			wantError: "video generation timed out after 3 polls",
			wantPolls: 3,
		},
		{
			name:      "start error",
			api:       &fakeVideoAPI{startErr: errors.New("quota exhausted")},
			wantError: "quota exhausted",
		},
		{
			name:      "operation error",
			api:       &fakeVideoAPI{doneAfter: 1, final: gemini.VideoStatus{Done: true, Error: "SAFETY: person"}},
			wantError: "SAFETY: person",
			wantPolls: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.api)
			job, got := f.run(t, f.seedVideo(t))
			if got.Status != domain.VideoFailed || !strings.Contains(got.Error, tc.wantError) {
				t.Fatalf("video: status=%s error=%q", got.Status, got.Error)
			}
			if job.Status != domain.JobStatusFailed || job.Attempts < 1000 {
				t.Fatalf("job should be failed without retries: %+v", job)
			}
			if tc.api.polls != tc.wantPolls {
				t.Fatalf("polls: want=%d got=%d", tc.wantPolls, tc.api.polls)
			}
		})
	}
}

func TestVideoJobResumesExistingOperation(t *testing.T) {
	api := &fakeVideoAPI{doneAfter: 1, final: gemini.VideoStatus{Done: true, Bytes: []byte("resumed")}}
	f := newFixture(t, api)
	v := f.seedVideo(t, func(v *domain.VideoMaterial) {
		v.Status = domain.VideoProcessing
		v.OperationName = "operations/op-1"
	})

	_, got := f.run(t, v)
	if got.Status != domain.VideoCompleted || len(api.starts) != 0 {
		t.Fatalf("video=%+v starts=%d", got, len(api.starts))
	}
}

func TestVideoJobInterruptedLeavesProcessing(t *testing.T) {
	api := &fakeVideoAPI{}
	f := newFixture(t, api)
	f.pipeline.cfg.PollInterval = time.Hour
	v := f.seedVideo(t)

	ctx, cancel := context.WithCancel(context.Background())
	job := &domain.JobRun{
		OwnerUserID: "user-a",
		JobType:     domain.JobTypeVideoGenerate,
		Status:      domain.JobStatusRunning,
		Payload:     datatypes.JSON([]byte(`{"video_id":"` + v.ID.String() + `"}`)),
	}
	if _, err := f.jobs.Create(dbctx.Context{Ctx: ctx}, []*domain.JobRun{job}); err != nil {
		t.Fatalf("Create job: %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := f.pipeline.Run(jobrt.NewContext(ctx, job, f.jobs, testutil.Logger(t))); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	got, err := f.videos.GetByID(dbctx.Context{Ctx: context.Background()}, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.VideoProcessing || got.OperationName != "operations/op-1" {
		t.Fatalf("video should stay resumable: %+v", got)
	}
}

func TestVideoJobPollBudgetSpansRuns(t *testing.T) {
	cases := []struct {
		name      string
		used      int
		wantPolls int
	}{
		{name: "one poll left", used: 2, wantPolls: 1},
		{name: "budget spent", used: 3, wantPolls: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeVideoAPI{}
			f := newFixture(t, api)
			v := f.seedVideo(t, func(v *domain.VideoMaterial) {
				v.Status = domain.VideoProcessing
				v.OperationName = "operations/op-1"
				v.PollCount = tc.used
			})

			job, got := f.run(t, v)
			if api.polls != tc.wantPolls {
				t.Fatalf("polls: want=%d got=%d", tc.wantPolls, api.polls)
			}
			if got.Status != domain.VideoFailed || !strings.Contains(got.Error, "timed out after 3 polls") {
				t.Fatalf("video: status=%s error=%q", got.Status, got.Error)
			}
			if job.Status != domain.JobStatusFailed || got.PollCount != 3 {
				t.Fatalf("job=%s poll count=%d", job.Status, got.PollCount)
			}
		})
	}
}

func TestVideoJobDeletedMidRunLeavesNoObject(t *testing.T) {
	cases := []struct {
		name     string
		atUpload bool
	}{
		{name: "deleted before upload"},
		{name: "deleted during upload", atUpload: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeVideoAPI{doneAfter: 1, final: gemini.VideoStatus{Done: true, Bytes: []byte("orphan")}}
			f := newFixture(t, api)
			v := f.seedVideo(t)
			remove := func() {
				if err := f.videos.Delete(dbctx.Context{Ctx: context.Background()}, v.ID); err != nil {
					t.Errorf("Delete video: %v", err)
				}
			}
			if tc.atUpload {
				f.bucket.onUpload = remove
			} else {
				api.onDone = remove
			}

			job := f.runJob(t, v)
			if job.Status != domain.JobStatusFailed || !strings.Contains(job.Error, "no longer exists") {
				t.Fatalf("job: status=%s error=%q", job.Status, job.Error)
			}
			if n := len(f.bucket.objects); n != 0 {
				t.Fatalf("bucket should be empty, has %d objects", n)
			}
			if _, err := f.videos.GetByID(dbctx.Context{Ctx: context.Background()}, v.ID); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("video should stay deleted, got %v", err)
			}
		})
	}
}
