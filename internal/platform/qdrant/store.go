package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/httpx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

const (
	payloadNamespaceKey = "_sk_namespace"
	payloadVectorIDKey  = "_sk_vector_id"
	maxErrorBodyBytes   = 1024
	maxAttempts         = 3
)

var pointIDNamespaceUUID = uuid.MustParse("6b8f3f0e-5a7c-4d61-9c2e-2f9d1b7a4e10")

// indexedPayloadFields get keyword payload indexes when the collection is created.
var indexedPayloadFields = []string{payloadNamespaceKey, "material_id", "category"}

type Store struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

var _ vectorstore.VectorStore = (*Store)(nil)

func New(log *logger.Logger, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection verifies the collection's vector size, creating it with
// cosine distance when missing and CreateIfMissing is set.
func (s *Store) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	if err == nil {
		if size := info.Config.Params.Vectors.Size; size != 0 && size != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size), nil)
		}
		if d := info.Config.Params.Vectors.Distance; d != "" && !strings.EqualFold(d, "cosine") {
			s.log.Warn("qdrant collection is not cosine; scores are not similarities", "distance", d)
		}
		return nil
	}
	var oe *OperationError
	if !errors.As(err, &oe) || oe.StatusCode != http.StatusNotFound || !s.cfg.CreateIfMissing {
		return err
	}

	create := map[string]any{"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": "Cosine"}}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), create, nil); err != nil {
		return err
	}
	for _, field := range indexedPayloadFields {
		idx := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/index?wait=true"), idx, nil); err != nil {
			return err
		}
	}
	s.log.Info("qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	const op = "upsert"
	if len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(v.Values) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(v.Values)), nil)
		}
		payload := make(map[string]any, len(v.Metadata)+2)
		for k, val := range v.Metadata {
			payload[k] = val
		}
		payload[payloadNamespaceKey] = namespace
		payload[payloadVectorIDKey] = id
		points = append(points, map[string]any{
			"id":      s.pointID(namespace, id),
			"vector":  v.Values,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *Store) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]vectorstore.VectorMatch, error) {
	const op = "query"
	if len(q) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q)), nil)
	}
	if topK <= 0 {
		topK = 10
	}
	qf, err := buildFilter(namespace, filter)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       qf,
	}
	var items []searchItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &items); err != nil {
		return nil, err
	}

	out := make([]vectorstore.VectorMatch, 0, len(items))
	for _, item := range items {
		id, _ := item.Payload[payloadVectorIDKey].(string)
		if strings.TrimSpace(id) == "" {
			id = decodePointID(item.ID)
		}
		if id == "" {
			continue
		}
		meta := make(map[string]any, len(item.Payload))
		for k, v := range item.Payload {
			if k == payloadNamespaceKey || k == payloadVectorIDKey {
				continue
			}
			meta[k] = v
		}
		out = append(out, vectorstore.VectorMatch{ID: id, Score: item.Score, Metadata: meta})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *Store) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	const op = "delete"
	seen := make(map[string]struct{}, len(ids))
	points := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		pid := s.pointID(namespace, id)
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		points = append(points, pid)
	}
	if len(points) == 0 {
		return nil
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": points}, nil)
}

// doJSON performs one qdrant call, retrying transient failures.
func (s *Store) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = s.doOnce(ctx, op, method, path, payload, out)
		if lastErr == nil || !httpx.IsRetryableError(lastErr) || attempt == maxAttempts {
			return lastErr
		}
		backoff := httpx.JitterSleep(time.Duration(attempt) * 200 * time.Millisecond)
		s.log.Warn("qdrant call failed; retrying", "op", op, "attempt", attempt, "backoff", backoff, "error", lastErr)
		if err := httpx.Sleep(ctx, backoff); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (s *Store) doOnce(ctx context.Context, op, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*maxErrorBodyBytes))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http status=%d body=%q", resp.StatusCode, truncate(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := envelopeStatusError(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorRequestFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

func envelopeStatusError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") {
			return ""
		}
		return fmt.Sprintf("status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}
	return "status=" + string(raw)
}

func truncate(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprint(n)
	}
	return ""
}

func (s *Store) pointID(namespace, vectorID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(namespace+"|"+vectorID)).String()
}

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}
