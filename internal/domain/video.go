package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

type VideoMaterial struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         string      `gorm:"column:owner_id;not null;index" json:"ownerId"`
	Title           string      `gorm:"column:title;not null" json:"title"`
	Prompt          string      `gorm:"column:prompt;type:text;not null" json:"prompt"`
	AspectRatio     string      `gorm:"column:aspect_ratio" json:"aspectRatio,omitempty"`
	Status          VideoStatus `gorm:"column:status;not null;index" json:"status"`
	OperationName   string      `gorm:"column:operation_name" json:"-"`
	PollCount       int         `gorm:"column:poll_count;not null;default:0" json:"-"`
	VideoURL        string      `gorm:"column:video_url" json:"videoUrl,omitempty"`
	StoragePublicID string      `gorm:"column:storage_public_id" json:"-"`
	JobID           *uuid.UUID  `gorm:"type:uuid;column:job_id" json:"jobId,omitempty"`
	Error           string      `gorm:"column:error;type:text" json:"error,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (VideoMaterial) TableName() string { return "video_material" }

func (v *VideoMaterial) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
