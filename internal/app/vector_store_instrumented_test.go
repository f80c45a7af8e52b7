package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &fakeInstrumentedInner{}
	vs := instrumentVectorStore("qdrant", inner)
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}

	ctx := context.Background()
	if err := vs.Upsert(ctx, "chunks", []vectorstore.Vector{{ID: "v1", Values: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := vs.QueryMatches(ctx, "chunks", []float32{1, 2, 3}, 3, map[string]any{"category": "theory"})
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "v1" {
		t.Fatalf("QueryMatches: got=%v", matches)
	}
	if err := vs.DeleteIDs(ctx, "chunks", []string{"v1"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}

	if inner.upsertCalls != 1 || inner.queryMatchesCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf(
			"unexpected call counts: upsert=%d query_matches=%d delete=%d",
			inner.upsertCalls,
			inner.queryMatchesCalls,
			inner.deleteCalls,
		)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	inner := &fakeInstrumentedInner{deleteErr: want}
	vs := instrumentVectorStore("qdrant", inner)

	err := vs.DeleteIDs(context.Background(), "chunks", []string{"v1"})
	if !errors.Is(err, want) {
		t.Fatalf("DeleteIDs: expected %v, got=%v", want, err)
	}
}

func TestInstrumentVectorStoreNil(t *testing.T) {
	if vs := instrumentVectorStore("memory", nil); vs != nil {
		t.Fatalf("instrumentVectorStore(nil): want nil got=%T", vs)
	}
}

type fakeInstrumentedInner struct {
	upsertCalls       int
	queryMatchesCalls int
	deleteCalls       int

	deleteErr error
}

func (f *fakeInstrumentedInner) Upsert(_ context.Context, _ string, _ []vectorstore.Vector) error {
	f.upsertCalls++
	return nil
}

func (f *fakeInstrumentedInner) QueryMatches(_ context.Context, _ string, _ []float32, _ int, _ map[string]any) ([]vectorstore.VectorMatch, error) {
	f.queryMatchesCalls++
	return []vectorstore.VectorMatch{{ID: "v1", Score: 0.9}}, nil
}

func (f *fakeInstrumentedInner) DeleteIDs(_ context.Context, _ string, _ []string) error {
	f.deleteCalls++
	return f.deleteErr
}
