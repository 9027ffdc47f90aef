package models

import "time"

// MessageTypeText is the only message type whose body is shown in pushes
const MessageTypeText = "text"

// Conversation groups the participants of a message thread
type Conversation struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Participants []string  `gorm:"type:text;serializer:json" json:"participants"`
	CreatedAt    time.Time `gorm:"type:datetime;not null" json:"createdAt"`
}

// TableName specifies the table name
func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID takes part in the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the first participant that is not senderID
func (c *Conversation) OtherParticipant(senderID string) (string, bool) {
	for _, id := range c.Participants {
		if id != senderID {
			return id, true
		}
	}
	return "", false
}

// Message is a single entry in a conversation. Messages are written by the
// chat collaborator and only read here.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Type           string    `json:"type"`
	Text           string    `json:"text,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
