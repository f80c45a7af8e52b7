package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// Metrics is a process-wide registry rendered in Prometheus text format.
// All methods are safe on a nil receiver so callers never branch on enablement.
type Metrics struct {
	apiRequests     *CounterVec
	apiLatency      *HistogramVec
	apiInflight     *Gauge
	apiAccess       *CounterVec
	llmRequests     *CounterVec
	llmLatency      *HistogramVec
	embedChunks     *CounterVec
	searchResults   *HistogramVec
	validationScore *HistogramVec
	jobRuns         *CounterVec
	queueDepth      *GaugeVec

	vectorProvider   *GaugeVec
	vectorBootstrap  *CounterVec
	vectorOps        *CounterVec
	vectorLatency    *HistogramVec
	storageMode      *GaugeVec
	storageBootstrap *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the registry once. It returns nil when disabled.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = &Metrics{
			apiRequests: NewCounterVec("sk_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
			apiLatency: NewHistogramVec("sk_api_request_duration_seconds", "API request latency in seconds.",
				[]string{"method", "route", "status"},
				[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}),
			apiInflight: NewGauge("sk_api_inflight_requests", "In-flight API requests."),
			apiAccess:   NewCounterVec("sk_api_requests_by_access_total", "API requests by route and caller identity (authenticated/anonymous).", []string{"route", "access"}),
			llmRequests: NewCounterVec("sk_llm_requests_total", "Model API calls by model/endpoint/status.", []string{"model", "endpoint", "status"}),
			llmLatency: NewHistogramVec("sk_llm_request_duration_seconds", "Model API latency in seconds.",
				[]string{"model", "endpoint"},
				[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
			embedChunks: NewCounterVec("sk_embedding_chunks_total", "Chunk embedding outcomes.", []string{"outcome"}),
			searchResults: NewHistogramVec("sk_search_results", "Results returned per similarity search.",
				[]string{"mode"}, []float64{0, 1, 2, 3, 5, 10, 20}),
			validationScore: NewHistogramVec("sk_validation_overall_score", "Overall validation score.",
				[]string{"status"}, []float64{20, 40, 60, 70, 80, 90, 100}),
			jobRuns:    NewCounterVec("sk_job_runs_total", "Job executions by type/status.", []string{"job_type", "status"}),
			queueDepth: NewGaugeVec("sk_job_queue_depth", "Job rows by status.", []string{"status"}),
			vectorProvider: NewGaugeVec("sk_vector_store_provider_active", "Active vector store provider (1 = selected).", []string{"provider"}),
			vectorBootstrap: NewCounterVec("sk_vector_store_provider_bootstrap_total", "Vector store bootstrap attempts.",
				[]string{"provider", "status", "code"}),
			vectorOps: NewCounterVec("sk_vector_store_operations_total", "Vector store calls by provider/operation/status.",
				[]string{"provider", "operation", "status"}),
			vectorLatency: NewHistogramVec("sk_vector_store_operation_duration_seconds", "Vector store call latency in seconds.",
				[]string{"provider", "operation"},
				[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
			storageMode: NewGaugeVec("sk_object_storage_mode_active", "Active object storage mode (1 = selected).", []string{"mode"}),
			storageBootstrap: NewCounterVec("sk_object_storage_bootstrap_total", "Object storage bootstrap attempts.",
				[]string{"mode", "status", "code"}),
		}
	})
	return instance
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, write := range []func() error{
		func() error { return m.apiRequests.WritePrometheus(w) },
		func() error { return m.apiLatency.WritePrometheus(w) },
		func() error { return m.apiInflight.WritePrometheus(w) },
		func() error { return m.apiAccess.WritePrometheus(w) },
		func() error { return m.llmRequests.WritePrometheus(w) },
		func() error { return m.llmLatency.WritePrometheus(w) },
		func() error { return m.embedChunks.WritePrometheus(w) },
		func() error { return m.searchResults.WritePrometheus(w) },
		func() error { return m.validationScore.WritePrometheus(w) },
		func() error { return m.jobRuns.WritePrometheus(w) },
		func() error { return m.queueDepth.WritePrometheus(w) },
		func() error { return m.vectorProvider.WritePrometheus(w) },
		func() error { return m.vectorBootstrap.WritePrometheus(w) },
		func() error { return m.vectorOps.WritePrometheus(w) },
		func() error { return m.vectorLatency.WritePrometheus(w) },
		func() error { return m.storageMode.WritePrometheus(w) },
		func() error { return m.storageBootstrap.WritePrometheus(w) },
	} {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

// ObserveAPIAccess counts a request against the identity that made it, so
// public endpoints show how much traffic is signed in.
func (m *Metrics) ObserveAPIAccess(route, access string) {
	if m == nil {
		return
	}
	m.apiAccess.Inc(route, access)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint)
	}
}

// ObserveEmbeddedChunks counts chunk outcomes ("embedded", "failed", "skipped").
func (m *Metrics) ObserveEmbeddedChunks(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.embedChunks.Add(float64(n), outcome)
}

func (m *Metrics) ObserveSearch(mode string, results int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(results), mode)
}

func (m *Metrics) ObserveValidation(status string, score int) {
	if m == nil {
		return
	}
	m.validationScore.Observe(float64(score), status)
}

func (m *Metrics) ObserveJob(jobType, status string) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
}

func (m *Metrics) SetVectorStoreProviderActive(provider string) {
	if m == nil {
		return
	}
	m.vectorProvider.Set(1, provider)
}

func (m *Metrics) ObserveVectorStoreProviderBootstrap(provider, status, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.Inc(provider, status, code)
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.Inc(provider, operation, status)
	m.vectorLatency.Observe(dur.Seconds(), provider, operation)
}

func (m *Metrics) SetObjectStorageModeActive(mode string) {
	if m == nil {
		return
	}
	m.storageMode.Set(1, mode)
}

func (m *Metrics) ObserveObjectStorageProviderBootstrap(mode, status, code string) {
	if m == nil {
		return
	}
	m.storageBootstrap.Inc(mode, status, code)
}

// StartJobQueueCollector samples job_run counts by status until ctx is done.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	statuses := []string{domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusSucceeded, domain.JobStatusFailed}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).Model(&domain.JobRun{}).
					Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
					log.Warn("metrics: job queue depth query failed", "error", err)
					continue
				}
				for _, s := range statuses {
					m.queueDepth.Set(0, s)
				}
				for _, row := range rows {
					m.queueDepth.Set(float64(row.Count), row.Status)
				}
			}
		}
	}()
}
