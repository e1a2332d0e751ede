package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// CheckpointVersion is the current transcript checkpoint format version.
const CheckpointVersion = "1"

// Checkpoint is a portable copy of one chat transcript.
type Checkpoint struct {
	Version    string    `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Chat       Chat      `json:"chat" yaml:"chat"`
	Messages   []Entry   `json:"messages" yaml:"messages"`
}

// Format is a checkpoint encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks the checkpoint format from a file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Export writes a chat transcript to w.
func (s *SQLiteStorage) Export(ctx context.Context, chatID string, w io.Writer, format Format) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	entries, err := s.Entries(ctx, chatID)
	if err != nil {
		return err
	}

	checkpoint := Checkpoint{
		Version:    CheckpointVersion,
		ExportedAt: s.now().UTC(),
		Chat:       *chat,
		Messages:   make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		checkpoint.Messages = append(checkpoint.Messages, *e)
	}

	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(checkpoint); err != nil {
			return errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).Err()
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(checkpoint); err != nil {
			return errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).Err()
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported export format %q (supported: json, yaml)", errUtils.ErrTranscriptFailed, format)
	}
}

// Import appends the messages of a checkpoint read from r to the chat it names,
// or to chatID when set.
func (s *SQLiteStorage) Import(ctx context.Context, r io.Reader, format Format, chatID string) (*Chat, error) {
	var checkpoint Checkpoint
	var err error
	if format == FormatYAML {
		err = yaml.NewDecoder(r).Decode(&checkpoint)
	} else {
		err = json.NewDecoder(r).Decode(&checkpoint)
	}
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrTranscriptFailed).
			WithCause(err).
			WithHint("checkpoints are written by `weave transcript export`").
			Err()
	}

	if chatID == "" {
		chatID = checkpoint.Chat.ID
	}
	if chatID == "" {
		return nil, errUtils.ErrChatIDEmpty
	}

	for i := range checkpoint.Messages {
		m := checkpoint.Messages[i]
		role, err := types.ParseRole(string(m.Role))
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).WithContext("message", i).Err()
		}
		msg := types.Message{Role: role, Name: m.Name, Content: m.Content}
		if _, err := s.AppendMessage(ctx, chatID, checkpoint.Chat.CharacterName, msg); err != nil {
			return nil, err
		}
	}

	return s.GetChat(ctx, chatID)
}
