package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatTurn struct {
	Role    ChatRole `json:"role" validate:"required,oneof=user assistant"`
	Content string   `json:"content" validate:"required"`
}

// ChatHistory stores one exchange: the user's message and the answer.
type ChatHistory struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string         `gorm:"column:user_id;not null;index" json:"userId"`
	Message    string         `gorm:"column:message;type:text;not null" json:"message"`
	Response   string         `gorm:"column:response;type:text" json:"response"`
	Sources    datatypes.JSON `gorm:"column:sources;type:jsonb" json:"sources"`
	Validation datatypes.JSON `gorm:"column:validation;type:jsonb" json:"validation,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (ChatHistory) TableName() string { return "chat_history" }

func (c *ChatHistory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
