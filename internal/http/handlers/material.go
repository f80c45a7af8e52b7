package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/services"
)

type uploadMaterialForm struct {
	Title       string `form:"title" validate:"required,max=300"`
	Description string `form:"description" validate:"max=5000"`
	CourseName  string `form:"courseName" validate:"max=200"`
	Category    string `form:"category" validate:"required,category"`
	Type        string `form:"type" validate:"required,materialtype"`
	Topic       string `form:"topic" validate:"max=300"`
	Week        int    `form:"week" validate:"required,min=1"`
	Tags        string `form:"tags"`
	FileURL     string `form:"fileUrl" validate:"omitempty,url"`
}

type updateMaterialRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	CourseName  *string   `json:"courseName" validate:"omitempty,max=200"`
	Category    *string   `json:"category" validate:"omitempty,category"`
	Type        *string   `json:"type" validate:"omitempty,materialtype"`
	Topic       *string   `json:"topic" validate:"omitempty,max=300"`
	Week        *int      `json:"week" validate:"omitempty,min=1"`
	Tags        *[]string `json:"tags" validate:"omitempty,dive,max=50"`
	Content     *string   `json:"content"`
}

type listMaterialsQuery struct {
	Category string `form:"category" validate:"omitempty,category"`
	Type     string `form:"type" validate:"omitempty,materialtype"`
	Week     int    `form:"week" validate:"omitempty,min=1"`
	Course   string `form:"course"`
	Query    string `form:"q"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

type MaterialHandler struct {
	log       *logger.Logger
	materials services.MaterialService
	validate  *validator.Validate
	maxBytes  int64
}

func NewMaterialHandler(log *logger.Logger, materials services.MaterialService, validate *validator.Validate, maxUploadBytes int64) *MaterialHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &MaterialHandler{
		log:       log.With("handler", "MaterialHandler"),
		materials: materials,
		validate:  validate,
		maxBytes:  maxUploadBytes,
	}
}

// POST /api/materials
func (h *MaterialHandler) Upload(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+(1<<20))
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	var form uploadMaterialForm
	if err := c.ShouldBind(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_form", err)
		return
	}
	if !validateStruct(c, h.validate, &form) {
		return
	}

	in := services.UploadMaterialInput{
		Title:       form.Title,
		Description: form.Description,
		CourseName:  form.CourseName,
		Category:    domain.Category(form.Category),
		Type:        domain.MaterialType(form.Type),
		Topic:       form.Topic,
		Week:        form.Week,
		Tags:        splitTags(form.Tags),
		FileURL:     form.FileURL,
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		in.UploaderName = rd.DisplayName
	}

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		if fh.Size > h.maxBytes {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Errorf("file exceeds %d bytes", h.maxBytes))
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
			return
		}
		in.Filename = filepath.Base(fh.Filename)
		in.ContentType = uploadContentType(fh.Header.Get("Content-Type"), in.Filename)
		in.Data = data
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}

	m, job, err := h.materials.Upload(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondFromError(c, "upload_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"material": m, "job": job})
}

// GET /api/materials
func (h *MaterialHandler) List(c *gin.Context) {
	var q listMaterialsQuery
	if !bindQuery(c, h.validate, &q) {
		return
	}
	list, err := h.materials.List(c.Request.Context(), repos.MaterialFilter{
		Category:   domain.Category(q.Category),
		Type:       domain.MaterialType(q.Type),
		Week:       q.Week,
		CourseName: q.Course,
		Query:      q.Query,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		response.RespondFromError(c, "list_materials_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"materials": list})
}

// GET /api/materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.materials.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, "get_material_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"material": m})
}

// PATCH /api/materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateMaterialRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	patch := services.MaterialPatch{
		Title:       req.Title,
		Description: req.Description,
		CourseName:  req.CourseName,
		Topic:       req.Topic,
		Week:        req.Week,
		Tags:        req.Tags,
		Content:     req.Content,
	}
	if req.Category != nil {
		cat := domain.Category(*req.Category)
		patch.Category = &cat
	}
	if req.Type != nil {
		typ := domain.MaterialType(*req.Type)
		patch.Type = &typ
	}
	m, job, err := h.materials.Update(c.Request.Context(), userID, id, patch)
	if err != nil {
		response.RespondFromError(c, "update_material_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"material": m, "job": job})
}

// DELETE /api/materials/:id
func (h *MaterialHandler) Delete(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.materials.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondFromError(c, "delete_material_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func uploadContentType(header, filename string) string {
	if ct := strings.TrimSpace(header); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
