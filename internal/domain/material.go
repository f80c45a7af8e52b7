package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryTheory Category = "Theory"
	CategoryLab    Category = "Lab"
)

func (c Category) Valid() bool {
	return c == CategoryTheory || c == CategoryLab
}

type MaterialType string

const (
	TypePDF   MaterialType = "pdf"
	TypeSlide MaterialType = "slide"
	TypeCode  MaterialType = "code"
	TypeDoc   MaterialType = "doc"
	TypeLink  MaterialType = "link"
	TypeText  MaterialType = "text"
)

func (t MaterialType) Valid() bool {
	switch t {
	case TypePDF, TypeSlide, TypeCode, TypeDoc, TypeLink, TypeText:
		return true
	}
	return false
}

type Material struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description;type:text" json:"description"`
	CourseName      string         `gorm:"column:course_name;index" json:"courseName"`
	Category        Category       `gorm:"column:category;not null;index" json:"category"`
	Type            MaterialType   `gorm:"column:type;not null;index" json:"type"`
	Topic           string         `gorm:"column:topic" json:"topic"`
	Week            int            `gorm:"column:week;not null;default:1;index" json:"week"`
	Tags            datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	FileURL         string         `gorm:"column:file_url" json:"fileUrl"`
	StoragePublicID string         `gorm:"column:storage_public_id" json:"storagePublicId,omitempty"`
	MimeType        string         `gorm:"column:mime_type" json:"mimeType,omitempty"`
	Content         string         `gorm:"column:content;type:text" json:"content,omitempty"`
	UploaderID      string         `gorm:"column:uploader_id;not null;index" json:"uploaderId"`
	UploaderName    string         `gorm:"column:uploader_name" json:"uploaderName,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Material) TableName() string { return "material" }

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Body returns the material's content as a tagged value. Materials with
// no extracted text but a stored file resolve to a FileReference.
func (m *Material) Body() Content {
	c := DecodeContent(m.Content)
	if txt, ok := c.(TextContent); ok && strings.TrimSpace(txt.Text) == "" && strings.TrimSpace(m.FileURL) != "" {
		return FileReference{URL: strings.TrimSpace(m.FileURL)}
	}
	return c
}

// Snapshot is the denormalized metadata stored alongside each chunk.
func (m *Material) Snapshot() ChunkMetadata {
	return ChunkMetadata{
		Title:    m.Title,
		Category: m.Category,
		Topic:    m.Topic,
		Type:     m.Type,
		Week:     m.Week,
		FileURL:  m.FileURL,
	}
}
