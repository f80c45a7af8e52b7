package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
)

func newQueue(t *testing.T) *Queue {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewQueue(log, repos.NewJobRunRepo(db, log))
}

func TestSubmitCarriesTraceIDsInPayload(t *testing.T) {
	q := newQueue(t)
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-1", RequestID: "req-1"})
	materialID := uuid.New()

	job, err := q.Submit(ctx, Spec{
		Type:        domain.JobTypeEmbedMaterial,
		OwnerUserID: "user-a",
		EntityType:  "material",
		EntityID:    materialID,
		Payload:     map[string]any{"material_id": materialID.String()},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != domain.JobStatusQueued || job.EntityID == nil || *job.EntityID != materialID {
		t.Fatalf("unexpected job: %+v", job)
	}
	var payload map[string]string
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["trace_id"] != "trace-1" || payload["request_id"] != "req-1" || payload["material_id"] != materialID.String() {
		t.Fatalf("payload mismatch: %v", payload)
	}
}

func TestSubmitRequiresType(t *testing.T) {
	q := newQueue(t)
	if _, err := q.Submit(context.Background(), Spec{OwnerUserID: "user-a"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestSubmitUniqueReturnsRunnableJob(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()
	spec := Spec{Type: domain.JobTypeEmbedMaterial, OwnerUserID: "user-a", EntityType: "material", EntityID: uuid.New()}

	first, created, err := q.SubmitUnique(ctx, spec)
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	second, created, err := q.SubmitUnique(ctx, spec)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if created || second == nil || second.ID != first.ID {
		t.Fatalf("want existing job %s, got created=%v job=%v", first.ID, created, second)
	}
}

func TestGetEnforcesOwner(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()
	job, err := q.Submit(ctx, Spec{Type: domain.JobTypeVideoGenerate, OwnerUserID: "user-a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, err := q.Get(ctx, job.ID, "user-a"); err != nil || got.ID != job.ID {
		t.Fatalf("owner get: job=%v err=%v", got, err)
	}
	if _, err := q.Get(ctx, job.ID, "user-b"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other user: want ErrForbidden, got %v", err)
	}
	if _, err := q.Get(ctx, uuid.New(), "user-a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job: want ErrNotFound, got %v", err)
	}
}
