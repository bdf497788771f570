package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationQualified ConversationStatus = "qualified"
	ConversationClosed    ConversationStatus = "closed"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Lead      *Lead     `json:"leadData,omitempty"`
}

type Conversation struct {
	ID          string             `json:"id"`
	Messages    []Message          `json:"messages"`
	Status      ConversationStatus `json:"status"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Lead        *Lead              `json:"leadData,omitempty"`
}

// StatusFor reports qualified as soon as any message carries a qualified lead snapshot.
func StatusFor(messages []Message) ConversationStatus {
	for _, m := range messages {
		if m.Lead != nil && m.Lead.Qualified() {
			return ConversationQualified
		}
	}
	return ConversationActive
}

// LatestLead returns the most recent lead snapshot in the transcript.
func LatestLead(messages []Message) *Lead {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Lead != nil {
			l := *messages[i].Lead
			return &l
		}
	}
	return nil
}
