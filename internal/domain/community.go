package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const BotAuthorName = "Skooly Bot"

type CommunityPost struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID   string         `gorm:"column:author_id;not null;index" json:"authorId"`
	AuthorName string         `gorm:"column:author_name" json:"authorName"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Body       string         `gorm:"column:body;type:text;not null" json:"body"`
	Category   Category       `gorm:"column:category;index" json:"category,omitempty"`
	Tags       datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`

	Replies []CommunityReply `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"replies,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CommunityPost) TableName() string { return "community_post" }

func (p *CommunityPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type CommunityReply struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PostID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"postId"`
	AuthorID   string         `gorm:"column:author_id;index" json:"authorId"`
	AuthorName string         `gorm:"column:author_name" json:"authorName"`
	Body       string         `gorm:"column:body;type:text;not null" json:"body"`
	IsBot      bool           `gorm:"column:is_bot;not null;default:false" json:"isBot"`
	Sources    datatypes.JSON `gorm:"column:sources;type:jsonb" json:"sources,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (CommunityReply) TableName() string { return "community_reply" }

func (r *CommunityReply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
