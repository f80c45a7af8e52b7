package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

/*
Context is the handle a handler gets for one claimed job run.
Handlers never write job_run directly; they report through
Progress, Heartbeat, Fail and Succeed. Terminal writes are skipped once
the row has already reached a terminal status.
*/
type Context struct {
	Ctx     context.Context
	Job     *domain.JobRun
	Repo    repos.JobRunRepo
	Log     *logger.Logger
	payload map[string]any
}

func NewContext(ctx context.Context, job *domain.JobRun, repo repos.JobRunRepo, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{Ctx: ctx, Job: job, Repo: repo, Log: log}
	if job != nil {
		c.Log = log.With("job_id", job.ID, "job_type", job.JobType)
	}
	if err := c.decodePayload(); err != nil {
		c.Log.Warn("job payload is not a JSON object", "error", err)
	}
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c.Ctx == nil {
		c.Ctx = context.Background()
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadBool(key string) bool {
	switch v := c.Payload()[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

// PayloadUUID falls back to the job's entity id when the key is absent.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	if s := c.PayloadString(key); s != "" {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, false
		}
		return id, true
	}
	if c.Job != nil && c.Job.EntityID != nil && *c.Job.EntityID != uuid.Nil {
		return *c.Job.EntityID, true
	}
	return uuid.Nil, false
}

var terminalStatuses = []string{domain.JobStatusSucceeded}

// Progress records a non-terminal stage and refreshes the heartbeat.
func (c *Context) Progress(stage string, pct int) {
	now := time.Now()
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Warn("job progress write failed", "stage", stage, "error", err)
		}
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
}

func (c *Context) Heartbeat() {
	if c.Repo == nil || c.Job == nil {
		return
	}
	if err := c.Repo.Heartbeat(c.dbc(), c.Job.ID); err != nil {
		c.Log.Warn("job heartbeat failed", "error", err)
	}
}

// permanentAttempts exceeds any worker's retry budget.
const permanentAttempts = 1 << 20

// Fail marks the run failed. The worker may retry it while attempts remain.
func (c *Context) Fail(stage string, err error) { c.fail(stage, err, false) }

// FailPermanent marks the run failed and exhausts its retries.
func (c *Context) FailPermanent(stage string, err error) { c.fail(stage, err, true) }

func (c *Context) fail(stage string, err error, permanent bool) {
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		updates := map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"stage":         stage,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}
		if permanent {
			updates["attempts"] = permanentAttempts
		}
		ok, uerr := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, updates)
		if uerr != nil {
			c.Log.Error("job fail write failed", "stage", stage, "error", uerr)
		}
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = domain.JobStatusFailed
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
		if permanent {
			c.Job.Attempts = permanentAttempts
		}
		observability.Current().ObserveJob(c.Job.JobType, domain.JobStatusFailed)
	}
	c.Log.Warn("job failed", "stage", stage, "permanent", permanent, "error", msg)
}

func (c *Context) Succeed(finalStage string, result any) {
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]interface{}{
			"status":       domain.JobStatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Error("job succeed write failed", "error", err)
		}
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = domain.JobStatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
		observability.Current().ObserveJob(c.Job.JobType, domain.JobStatusSucceeded)
	}
}

func (c *Context) dbc() dbctx.Context {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return dbctx.Context{Ctx: ctx}
}
