package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), userID, jobID)
	if err != nil {
		response.RespondFromError(c, "job_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
