package rag

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
)

type EmbedStatus string

const (
	EmbedStatusEmbedded  EmbedStatus = "embedded"
	EmbedStatusSkipped   EmbedStatus = "skipped"
	EmbedStatusFailed    EmbedStatus = "failed"
	EmbedStatusNoContent EmbedStatus = "no_content"
)

// EmbedReport is the per-material outcome of an embedding pass.
type EmbedReport struct {
	MaterialID uuid.UUID   `json:"materialId"`
	Title      string      `json:"title"`
	Status     EmbedStatus `json:"status"`
	Chunks     int         `json:"chunks"`
	Error      string      `json:"error,omitempty"`
}

// EmbedMaterial embeds m unless it already has chunks and force is false.
func (s *Store) EmbedMaterial(ctx context.Context, m *domain.Material, force bool) EmbedReport {
	rep := EmbedReport{MaterialID: m.ID, Title: m.Title}
	if !force {
		has, err := s.HasEmbeddings(ctx, m.ID)
		if err != nil {
			rep.Status, rep.Error = EmbedStatusFailed, err.Error()
			return rep
		}
		if has {
			rep.Status = EmbedStatusSkipped
			return rep
		}
	}
	n, err := s.ReplaceChunks(ctx, m)
	switch {
	case errors.Is(err, ErrNoContent):
		rep.Status = EmbedStatusNoContent
	case err != nil:
		rep.Status, rep.Error = EmbedStatusFailed, err.Error()
	default:
		rep.Status, rep.Chunks = EmbedStatusEmbedded, n
	}
	return rep
}
