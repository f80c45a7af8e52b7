package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AiMaterial is saved output of the generation endpoint.
type AiMaterial struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID  string         `gorm:"column:owner_id;not null;index" json:"ownerId"`
	Type     string         `gorm:"column:type;not null;index" json:"type"`
	Title    string         `gorm:"column:title" json:"title"`
	Topic    string         `gorm:"column:topic" json:"topic,omitempty"`
	Content  string         `gorm:"column:content;type:text" json:"content"`
	AudioURL string         `gorm:"column:audio_url" json:"audioUrl,omitempty"`
	Sources  datatypes.JSON `gorm:"column:sources;type:jsonb" json:"sources,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AiMaterial) TableName() string { return "ai_material" }

func (a *AiMaterial) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
