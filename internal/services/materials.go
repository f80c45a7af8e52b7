package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/jobs"
	"github.com/yungbote/skooly-backend/internal/modules/ingestion/parser"
	"github.com/yungbote/skooly-backend/internal/platform/apierr"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const materialEntityType = "material"

type MaterialService interface {
	Upload(ctx context.Context, actorID string, in UploadMaterialInput) (*domain.Material, *domain.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Material, error)
	List(ctx context.Context, f repos.MaterialFilter) ([]*domain.Material, error)
	Update(ctx context.Context, actorID string, id uuid.UUID, patch MaterialPatch) (*domain.Material, *domain.JobRun, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
}

// UploadMaterialInput carries the metadata and, unless the material is a
// link, the uploaded file.
type UploadMaterialInput struct {
	Title        string
	Description  string
	CourseName   string
	Category     domain.Category
	Type         domain.MaterialType
	Topic        string
	Week         int
	Tags         []string
	UploaderName string

	Filename    string
	ContentType string
	Data        []byte

	// FileURL is used as-is for link materials uploaded without a file.
	FileURL string
}

// MaterialPatch holds the fields a PATCH may change; nil means unchanged.
type MaterialPatch struct {
	Title       *string
	Description *string
	CourseName  *string
	Category    *domain.Category
	Type        *domain.MaterialType
	Topic       *string
	Week        *int
	Tags        *[]string
	Content     *string
}

type materialService struct {
	log       *logger.Logger
	materials repos.MaterialRepo
	index     EmbeddingIndex
	bucket    gcp.BucketService
	jobs      JobSubmitter
}

func NewMaterialService(baseLog *logger.Logger, materials repos.MaterialRepo, index EmbeddingIndex, bucket gcp.BucketService, jobs JobSubmitter) MaterialService {
	return &materialService{
		log:       baseLog.With("service", "MaterialService"),
		materials: materials,
		index:     index,
		bucket:    bucket,
		jobs:      jobs,
	}
}

func (ms *materialService) Upload(ctx context.Context, actorID string, in UploadMaterialInput) (*domain.Material, *domain.JobRun, error) {
	if actorID == "" {
		return nil, nil, domain.ErrForbidden
	}
	if err := validateMaterialFields(in.Title, in.Category, in.Type, in.Week); err != nil {
		return nil, nil, err
	}
	hasFile := len(in.Data) > 0
	link := strings.TrimSpace(in.FileURL)
	if !hasFile && (in.Type != domain.TypeLink || link == "") {
		return nil, nil, fmt.Errorf("%w: a file is required unless the material is a link with a fileUrl", domain.ErrInvalidArgument)
	}

	m := &domain.Material{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		CourseName:   strings.TrimSpace(in.CourseName),
		Category:     in.Category,
		Type:         in.Type,
		Topic:        strings.TrimSpace(in.Topic),
		Week:         in.Week,
		Tags:         encodeTags(in.Tags),
		UploaderID:   actorID,
		UploaderName: strings.TrimSpace(in.UploaderName),
		FileURL:      link,
	}

	if hasFile {
		text, err := parser.Parse(in.Filename, in.ContentType, in.Data)
		switch {
		case errors.Is(err, parser.ErrNoText):
			ms.log.Info("material has no text layer; storing as file reference", "filename", in.Filename, "content_type", in.ContentType)
			text = ""
		case err != nil:
			ms.log.Warn("material parse failed; storing without text", "filename", in.Filename, "error", err)
			text = ""
		}
		obj, err := ms.bucket.Upload(ctx, gcp.UploadInput{
			Folder:      "materials",
			Kind:        gcp.ResourceRaw,
			Filename:    in.Filename,
			ContentType: in.ContentType,
			Body:        bytes.NewReader(in.Data),
		})
		if err != nil {
			ms.log.Error("material file upload failed", "filename", in.Filename, "error", err)
			return nil, nil, apierr.New(http.StatusBadGateway, "storage_failed", fmt.Errorf("file storage failed: %w", err))
		}
		m.FileURL = obj.URL
		m.StoragePublicID = obj.PublicID
		m.MimeType = in.ContentType
		m.Content = text
	}
	if strings.TrimSpace(m.Content) == "" {
		m.Content = domain.EncodeContent(domain.FileReference{URL: m.FileURL})
	}

	if _, err := ms.materials.Create(dbctx.Context{Ctx: ctx}, m); err != nil {
		ms.discardObject(ctx, m.StoragePublicID)
		return nil, nil, fmt.Errorf("create material: %w", err)
	}
	ms.log.Info("material uploaded", "material_id", m.ID, "type", m.Type, "has_text", !isFileReference(m))

	job := ms.enqueueEmbed(ctx, actorID, m.ID, false)
	return m, job, nil
}

func (ms *materialService) Get(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	return ms.materials.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (ms *materialService) List(ctx context.Context, f repos.MaterialFilter) ([]*domain.Material, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidArgument, f.Category)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidArgument, f.Type)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	return ms.materials.List(dbctx.Context{Ctx: ctx}, f)
}

func (ms *materialService) Update(ctx context.Context, actorID string, id uuid.UUID, patch MaterialPatch) (*domain.Material, *domain.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	m, err := ms.materials.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if err := requireOwner(actorID, m.UploaderID); err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{}
	reembed := false
	setString := func(col string, v *string, cur string, affectsEmbedding bool) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if nv == cur {
			return
		}
		updates[col] = nv
		reembed = reembed || affectsEmbedding
	}
	setString("title", patch.Title, m.Title, true)
	setString("description", patch.Description, m.Description, false)
	setString("course_name", patch.CourseName, m.CourseName, false)
	setString("topic", patch.Topic, m.Topic, true)
	if patch.Category != nil && *patch.Category != m.Category {
		updates["category"] = *patch.Category
		reembed = true
	}
	if patch.Type != nil && *patch.Type != m.Type {
		updates["type"] = *patch.Type
		reembed = true
	}
	if patch.Week != nil && *patch.Week != m.Week {
		updates["week"] = *patch.Week
		reembed = true
	}
	if patch.Tags != nil {
		updates["tags"] = encodeTags(*patch.Tags)
	}
	if patch.Content != nil && *patch.Content != m.Content {
		content := *patch.Content
		if strings.TrimSpace(content) == "" && m.FileURL != "" {
			content = domain.EncodeContent(domain.FileReference{URL: m.FileURL})
		}
		updates["content"] = content
		reembed = true
	}

	title, category, typ, week := m.Title, m.Category, m.Type, m.Week
	if v, ok := updates["title"].(string); ok {
		title = v
	}
	if patch.Category != nil {
		category = *patch.Category
	}
	if patch.Type != nil {
		typ = *patch.Type
	}
	if patch.Week != nil {
		week = *patch.Week
	}
	if err := validateMaterialFields(title, category, typ, week); err != nil {
		return nil, nil, err
	}
	if len(updates) == 0 {
		return m, nil, nil
	}
	if err := ms.materials.UpdateFields(dbc, id, updates); err != nil {
		return nil, nil, err
	}
	updated, err := ms.materials.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	var job *domain.JobRun
	if reembed {
		job = ms.enqueueEmbed(ctx, actorID, id, true)
	}
	return updated, job, nil
}

// Delete removes the material, its chunks and vectors, then its stored file.
func (ms *materialService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	m, err := ms.materials.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if err := requireOwner(actorID, m.UploaderID); err != nil {
		return err
	}
	n, err := ms.index.DeleteMaterial(ctx, id)
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if err := ms.materials.Delete(dbc, id); err != nil {
		return err
	}
	ms.discardObject(ctx, m.StoragePublicID)
	ms.log.Info("material deleted", "material_id", id, "chunks", n)
	return nil
}

func (ms *materialService) enqueueEmbed(ctx context.Context, actorID string, id uuid.UUID, force bool) *domain.JobRun {
	if ms.jobs == nil {
		return nil
	}
	job, err := ms.jobs.Submit(ctx, jobs.Spec{
		Type:        domain.JobTypeEmbedMaterial,
		OwnerUserID: actorID,
		EntityType:  materialEntityType,
		EntityID:    id,
		Payload:     map[string]any{"material_id": id.String(), "force": force},
	})
	if err != nil {
		// Backfill picks up materials without chunks.
		ms.log.Warn("embed job submit failed", "material_id", id, "error", err)
		return nil
	}
	return job
}

func (ms *materialService) discardObject(ctx context.Context, publicID string) {
	if publicID == "" || ms.bucket == nil {
		return
	}
	if err := ms.bucket.Delete(ctx, publicID, gcp.ResourceRaw); err != nil {
		ms.log.Warn("stored file cleanup failed", "public_id", publicID, "error", err)
	}
}

func validateMaterialFields(title string, category domain.Category, typ domain.MaterialType, week int) error {
	var problems []string
	if strings.TrimSpace(title) == "" {
		problems = append(problems, "title is required")
	}
	if !category.Valid() {
		problems = append(problems, fmt.Sprintf("category must be Theory or Lab, got %q", category))
	}
	if !typ.Valid() {
		problems = append(problems, fmt.Sprintf("unknown type %q", typ))
	}
	if week < 1 {
		problems = append(problems, "week must be >= 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

func encodeTags(tags []string) datatypes.JSON {
	clean := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		clean = append(clean, t)
	}
	b, _ := json.Marshal(clean)
	return datatypes.JSON(b)
}

func isFileReference(m *domain.Material) bool {
	_, ok := m.Body().(domain.FileReference)
	return ok
}
