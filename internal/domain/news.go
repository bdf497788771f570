package domain

import "time"

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

type NewsPost struct {
	ID           string     `json:"id"`
	OriginalText string     `json:"originalText"`
	EnhancedText string     `json:"enhancedText"`
	Hashtags     []string   `json:"hashtags"`
	Template     string     `json:"template"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	Status       PostStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (p NewsPost) HasTag(tag string) bool {
	for _, t := range p.Hashtags {
		if t == tag {
			return true
		}
	}
	return false
}
