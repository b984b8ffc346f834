package entity

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a conversation timeline.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

func NewChatMessage(role Role, content string, at time.Time) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: at.UnixMilli(),
	}
}

func (m ChatMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
