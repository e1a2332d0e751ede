package lore

import (
	"github.com/pkoukk/tiktoken-go"

	errUtils "github.com/cloudposse/weave/errors"
)

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrTokenizer).WithCause(err).WithContext("encoding", encoding).Err()
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates four bytes per token.
type EstimateCounter struct{}

// Count implements Counter.
func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}
