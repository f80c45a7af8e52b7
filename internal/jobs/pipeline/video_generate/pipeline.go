package video_generate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
	jobrt "github.com/yungbote/skooly-backend/internal/jobs/runtime"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/httpx"
)

/*
Run drives one video record to completed or failed:
  - start the operation, or resume it when a reclaimed run finds an operation name
  - poll every PollInterval, at most MaxPolls times across all runs
  - fetch the bytes, upload them, record the public URL

Generation failures are permanent. Only an interrupted run (ctx done) leaves
the record processing so a later claim can resume polling. A record deleted
mid-run stops the job and leaves no stored object behind.
*/
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	videoID, ok := jc.PayloadUUID("video_id")
	if !ok {
		jc.FailPermanent("validate", fmt.Errorf("missing video_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}
	v, err := p.videos.GetByID(dbc, videoID)
	if errors.Is(err, domain.ErrNotFound) {
		return p.gone(jc, videoID, "load")
	}
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	switch v.Status {
	case domain.VideoCompleted:
		jc.Succeed("done", map[string]any{"video_id": v.ID.String(), "video_url": v.VideoURL})
		return nil
	case domain.VideoFailed:
		jc.FailPermanent("load", errors.New(v.Error))
		return nil
	}

	opName := v.OperationName
	if opName == "" {
		jc.Progress("start", 5)
		aspect := v.AspectRatio
		if aspect == "" {
			aspect = p.cfg.AspectRatio
		}
		opName, err = p.api.StartVideo(jc.Ctx, v.Prompt, gemini.VideoConfig{AspectRatio: aspect})
		if err != nil {
			return p.fail(jc, v.ID, "start", err)
		}
		err = p.videos.UpdateFields(dbc, v.ID, map[string]interface{}{
			"status":         domain.VideoProcessing,
			"operation_name": opName,
			"poll_count":     0,
		})
		if errors.Is(err, domain.ErrNotFound) {
			return p.gone(jc, v.ID, "start")
		}
		if err != nil {
			jc.Fail("start", err)
			return nil
		}
		v.PollCount = 0
	} else {
		jc.Log.Info("resuming video operation", "video_id", v.ID, "operation", opName)
	}

	st, err := p.poll(jc, v, opName)
	if errors.Is(err, domain.ErrNotFound) {
		return p.gone(jc, v.ID, "poll")
	}
	if err != nil {
		if jc.Ctx.Err() != nil {
			return err
		}
		return p.fail(jc, v.ID, "poll", err)
	}
	if st.Error != "" {
		return p.fail(jc, v.ID, "poll", errors.New(st.Error))
	}

	jc.Progress("fetch", 90)
	data := st.Bytes
	if len(data) == 0 {
		if st.VideoURI == "" {
			return p.fail(jc, v.ID, "fetch", errors.New("operation finished without a video"))
		}
		data, err = p.api.FetchVideo(jc.Ctx, st.VideoURI)
		if err != nil {
			return p.fail(jc, v.ID, "fetch", err)
		}
	}

	jc.Progress("upload", 95)
	if _, err := p.videos.GetByID(dbc, v.ID); errors.Is(err, domain.ErrNotFound) {
		return p.gone(jc, v.ID, "upload")
	} else if err != nil {
		jc.Fail("upload", err)
		return nil
	}
	contentType := st.MIMEType
	if contentType == "" {
		contentType = "video/mp4"
	}
	obj, err := p.bucket.Upload(jc.Ctx, gcp.UploadInput{
		Folder:      "videos",
		Kind:        gcp.ResourceVideo,
		Filename:    v.ID.String() + ".mp4",
		ContentType: contentType,
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return p.fail(jc, v.ID, "upload", err)
	}
	if err := p.videos.UpdateFields(dbc, v.ID, map[string]interface{}{
		"status":            domain.VideoCompleted,
		"video_url":         obj.URL,
		"storage_public_id": obj.PublicID,
		"error":             "",
	}); err != nil {
		if derr := p.bucket.Delete(jc.Ctx, obj.PublicID, gcp.ResourceVideo); derr != nil {
			jc.Log.Warn("delete unrecorded video object failed", "video_id", v.ID, "public_id", obj.PublicID, "error", derr)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return p.gone(jc, v.ID, "finalize")
		}
		jc.Fail("finalize", err)
		return nil
	}
	jc.Succeed("done", map[string]any{"video_id": v.ID.String(), "video_url": obj.URL})
	return nil
}

// poll waits before each status check. Transient poll errors use up a poll.
// The count is stored on the record so a reclaimed run continues the budget.
func (p *Pipeline) poll(jc *jobrt.Context, v *domain.VideoMaterial, opName string) (gemini.VideoStatus, error) {
	dbc := dbctx.Context{Ctx: jc.Ctx}
	var lastErr error
	for i := v.PollCount + 1; i <= p.cfg.MaxPolls; i++ {
		if err := httpx.Sleep(jc.Ctx, p.cfg.PollInterval); err != nil {
			return gemini.VideoStatus{}, err
		}
		if err := p.videos.UpdateFields(dbc, v.ID, map[string]interface{}{"poll_count": i}); err != nil {
			if errors.Is(err, domain.ErrNotFound) || jc.Ctx.Err() != nil {
				return gemini.VideoStatus{}, err
			}
			jc.Log.Warn("record video poll count failed", "video_id", v.ID, "poll", i, "error", err)
		}
		jc.Progress("poll", 10+80*i/p.cfg.MaxPolls)
		st, err := p.api.PollVideo(jc.Ctx, opName)
		if err != nil {
			if jc.Ctx.Err() != nil {
				return gemini.VideoStatus{}, jc.Ctx.Err()
			}
			lastErr = err
			jc.Log.Warn("video poll failed", "poll", i, "error", err)
			continue
		}
		if st.Done {
			return st, nil
		}
	}
	if lastErr != nil {
		return gemini.VideoStatus{}, fmt.Errorf("video generation timed out after %d polls: %w", p.cfg.MaxPolls, lastErr)
	}
	return gemini.VideoStatus{}, fmt.Errorf("video generation timed out after %d polls", p.cfg.MaxPolls)
}

// gone ends the job for a record deleted by its owner.
func (p *Pipeline) gone(jc *jobrt.Context, videoID uuid.UUID, stage string) error {
	jc.Log.Info("video deleted during generation", "video_id", videoID, "stage", stage)
	jc.FailPermanent(stage, fmt.Errorf("video %s no longer exists", videoID))
	return nil
}

func (p *Pipeline) fail(jc *jobrt.Context, videoID uuid.UUID, stage string, cause error) error {
	msg := cause.Error()
	if err := p.videos.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, videoID, map[string]interface{}{
		"status": domain.VideoFailed,
		"error":  msg,
	}); err != nil {
		jc.Log.Error("mark video failed", "video_id", videoID, "error", err)
	}
	jc.FailPermanent(stage, cause)
	return nil
}
