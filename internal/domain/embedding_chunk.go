package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChunkMetadata struct {
	Title    string       `json:"title"`
	Category Category     `json:"category"`
	Topic    string       `json:"topic,omitempty"`
	Type     MaterialType `json:"type"`
	Week     int          `json:"week"`
	FileURL  string       `json:"fileUrl,omitempty"`
}

// EmbeddingChunk is one retrievable slice of a material. The vector index is
// keyed by the chunk's ID; Embedding keeps a copy so an index can be rebuilt.
type EmbeddingChunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_chunk_material_index,priority:1" json:"materialId"`
	ChunkIndex int            `gorm:"column:chunk_index;not null;uniqueIndex:idx_chunk_material_index,priority:2" json:"chunkIndex"`
	Content    string         `gorm:"column:content;type:text;not null" json:"content"`
	Model      string         `gorm:"column:model" json:"model"`
	Dimensions int            `gorm:"column:dimensions;not null" json:"dimensions"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	Embedding  datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (EmbeddingChunk) TableName() string { return "embedding_chunk" }

func (c *EmbeddingChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *EmbeddingChunk) Meta() ChunkMetadata {
	var m ChunkMetadata
	if len(c.Metadata) > 0 {
		_ = json.Unmarshal(c.Metadata, &m)
	}
	return m
}

func (c *EmbeddingChunk) SetMeta(m ChunkMetadata) {
	b, _ := json.Marshal(m)
	c.Metadata = datatypes.JSON(b)
}

func (c *EmbeddingChunk) Vector() []float32 {
	var v []float32
	if len(c.Embedding) > 0 {
		_ = json.Unmarshal(c.Embedding, &v)
	}
	return v
}

func (c *EmbeddingChunk) SetVector(v []float32) {
	b, _ := json.Marshal(v)
	c.Embedding = datatypes.JSON(b)
	c.Dimensions = len(v)
}
