package domain

import "github.com/google/uuid"

// Source is a cited material in a search or generation response.
type Source struct {
	MaterialID uuid.UUID    `json:"materialId"`
	Title      string       `json:"title"`
	Category   Category     `json:"category"`
	Topic      string       `json:"topic,omitempty"`
	Type       MaterialType `json:"type"`
	Week       int          `json:"week"`
	FileURL    string       `json:"fileUrl,omitempty"`
	Score      float64      `json:"score"`
	Excerpt    string       `json:"excerpt,omitempty"`
}

// FileSource is a material the model should read directly.
type FileSource struct {
	URL        string       `json:"url"`
	Title      string       `json:"title"`
	Type       MaterialType `json:"type"`
	MaterialID uuid.UUID    `json:"materialId"`
}
