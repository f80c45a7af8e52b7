package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.ObserveAPIAccess("/x", "anonymous")
	m.ObserveLLMRequest("gemini", "generate", "ok", time.Second)
	m.ObserveEmbeddedChunks("embedded", 3)
	m.ObserveValidation("verified", 90)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := Init(true)
	if m == nil {
		t.Fatalf("Init(true) returned nil")
	}
	m.ObserveAPI("POST", "/api/search", "200", 120*time.Millisecond)
	m.ObserveEmbeddedChunks("failed", 2)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`sk_api_requests_total{method="POST",route="/api/search",status="200"}`,
		`sk_api_request_duration_seconds_bucket{method="POST",route="/api/search",status="200",le="0.25"} 1`,
		`sk_embedding_chunks_total{outcome="failed"} 2`,
		"# TYPE sk_job_queue_depth gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, out)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = 2 ,bad, =x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("ParseHeaders: %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}
