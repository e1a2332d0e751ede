// Package lore activates lorebook entries whose keys appear in recent chat text and
// assembles them into the text placed before and after the conversation.
package lore

import (
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	errUtils "github.com/cloudposse/weave/errors"
)

// Position is where an activated entry is placed.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	switch pos := Position(strings.ToLower(strings.TrimSpace(string(text)))); pos {
	case PositionBefore, PositionAfter:
		*p = pos
		return nil
	case "":
		*p = PositionBefore
		return nil
	default:
		return fmt.Errorf("%w: entry position `%s`: expected before or after", errUtils.ErrLoreBookParse, string(text))
	}
}

// Entry is one lorebook entry.
type Entry struct {
	UID int `yaml:"uid"`
	// Keys are case-insensitive glob patterns; any match activates the entry.
	Keys []string `yaml:"keys"`
	// SecondaryKeys, when set, must also match at least once.
	SecondaryKeys []string `yaml:"secondary_keys,omitempty"`
	Content       string   `yaml:"content"`
	Position      Position `yaml:"position,omitempty"`
	// Order sorts activated entries; higher goes first.
	Order    int  `yaml:"order,omitempty"`
	Constant bool `yaml:"constant,omitempty"`
	Disabled bool `yaml:"disabled,omitempty"`
	// Sticky keeps the entry active for this many further live lookups.
	Sticky  int    `yaml:"sticky,omitempty"`
	Comment string `yaml:"comment,omitempty"`

	keys      []glob.Glob
	secondary []glob.Glob
}

// Book is a loaded lorebook.
type Book struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`
}

// LoadBook reads and compiles a YAML lorebook.
func LoadBook(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrLoreBookRead).WithCause(err).WithContext("path", path).Err()
	}

	book, err := ParseBook(data)
	if err != nil {
		return nil, errUtils.Build(err).WithContext("path", path).Err()
	}
	return book, nil
}

// ParseBook decodes and compiles a YAML lorebook.
func ParseBook(data []byte) (*Book, error) {
	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, errUtils.Build(errUtils.ErrLoreBookParse).WithCause(err).Err()
	}

	for i := range book.Entries {
		if err := book.Entries[i].compile(); err != nil {
			return nil, err
		}
	}
	return &book, nil
}

func (e *Entry) compile() error {
	if e.Position == "" {
		e.Position = PositionBefore
	}

	var err error
	if e.keys, err = compileKeys(e.UID, e.Keys); err != nil {
		return err
	}
	e.secondary, err = compileKeys(e.UID, e.SecondaryKeys)
	return err
}

// compileKeys compiles each key as a substring pattern over lowercased text.
func compileKeys(uid int, keys []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(keys))
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		g, err := glob.Compile("*" + key + "*")
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrLoreBookParse).
				WithCause(err).
				WithContext("uid", uid).
				WithContext("key", key).
				Err()
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// matches reports whether the entry's keys activate on the lowercased text.
func (e *Entry) matches(text string) bool {
	if !anyMatch(e.keys, text) {
		return false
	}
	return len(e.secondary) == 0 || anyMatch(e.secondary, text)
}

func anyMatch(globs []glob.Glob, text string) bool {
	for _, g := range globs {
		if g.Match(text) {
			return true
		}
	}
	return false
}
