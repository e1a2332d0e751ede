// Package session persists the running transcript of each chat so the pipeline
// can repair conversations the host delivered without their history.
package session

import (
	"context"
	"time"

	"github.com/cloudposse/weave/pkg/ai/types"
)

// Chat is one stored conversation.
type Chat struct {
	ID            string    `json:"id" yaml:"id"`
	CharacterName string    `json:"character_name,omitempty" yaml:"character_name,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
	MessageCount  int       `json:"message_count,omitempty" yaml:"message_count,omitempty"`
}

// Entry is one stored transcript message.
type Entry struct {
	ID        int64      `json:"id" yaml:"id"`
	ChatID    string     `json:"chat_id" yaml:"chat_id"`
	Role      types.Role `json:"role" yaml:"role"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Content   string     `json:"content" yaml:"content"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

// Message converts the entry to a conversation message.
func (e *Entry) Message() types.Message {
	return types.Message{Role: e.Role, Name: e.Name, Content: e.Content}
}

// TranscriptSource supplies the known history of a chat.
type TranscriptSource interface {
	Transcript(ctx context.Context, chatID string) ([]types.Message, error)
}
