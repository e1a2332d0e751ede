package lore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/weave/errors"
)

const testBook = `
name: Eldoria
entries:
  - uid: 1
    keys: [sword, "excal*bur"]
    content: Excalibur lies beneath the lake.
    order: 10
  - uid: 2
    keys: [lake]
    content: The lake is guarded by a spirit.
    position: after
    order: 5
  - uid: 3
    constant: true
    content: Eldoria is a kingdom of mist.
    order: 100
  - uid: 4
    keys: [dragon]
    secondary_keys: [fire, ember]
    content: The dragon sleeps under the mountain.
  - uid: 5
    keys: [sword]
    disabled: true
    content: Never shown.
  - uid: 6
    keys: [oath]
    sticky: 2
    content: The knights swore an oath of silence.
`

func loadTestBook(t *testing.T) *Book {
	t.Helper()

	book, err := ParseBook([]byte(testBook))
	require.NoError(t, err)
	return book
}

func TestLoadBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testBook), 0o600))

	book, err := LoadBook(path)
	require.NoError(t, err)
	assert.Equal(t, "Eldoria", book.Name)
	assert.Len(t, book.Entries, 6)
	assert.Equal(t, PositionBefore, book.Entries[0].Position)
	assert.Equal(t, PositionAfter, book.Entries[1].Position)
}

func TestLoadBook_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"invalid yaml", "entries: [", errUtils.ErrLoreBookParse},
		{"invalid position", "entries:\n  - uid: 1\n    position: middle\n", errUtils.ErrLoreBookParse},
		{"invalid glob", "entries:\n  - uid: 1\n    keys: [\"[a\"]\n", errUtils.ErrLoreBookParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBook([]byte(tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := LoadBook(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errUtils.ErrLoreBookRead)
}

func TestEngine_Lookup(t *testing.T) {
	tests := []struct {
		name       string
		content    []string
		scanFields []string
		maxSize    int
		before     string
		after      string
	}{
		{
			name:    "constant only",
			content: []string{"Hello there."},
			before:  "Eldoria is a kingdom of mist.",
		},
		{
			name:    "keys are case-insensitive and ordered",
			content: []string{"Where is the SWORD?", "Near the lake."},
			before:  "Eldoria is a kingdom of mist.\nExcalibur lies beneath the lake.",
			after:   "The lake is guarded by a spirit.",
		},
		{
			name:    "glob key",
			content: []string{"excalibur!"},
			before:  "Eldoria is a kingdom of mist.\nExcalibur lies beneath the lake.",
		},
		{
			name:    "secondary key required",
			content: []string{"A dragon appears."},
			before:  "Eldoria is a kingdom of mist.",
		},
		{
			name:    "secondary key matched",
			content: []string{"A dragon breathes fire."},
			before:  "Eldoria is a kingdom of mist.\nThe dragon sleeps under the mountain.",
		},
		{
			name:    "scan depth hides old messages",
			content: []string{"the sword", "one", "two", "three", "four"},
			before:  "Eldoria is a kingdom of mist.",
		},
		{
			name:       "scan fields",
			content:    []string{"hi"},
			scanFields: []string{"A knight who seeks a sword."},
			before:     "Eldoria is a kingdom of mist.\nExcalibur lies beneath the lake.",
		},
		{
			name:    "budget skips entries that do not fit",
			content: []string{"sword"},
			maxSize: 8,
			before:  "Eldoria is a kingdom of mist.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(loadTestBook(t), nil, 4)

			result, err := engine.Lookup(context.Background(), Request{
				Content:        tt.content,
				ScanFields:     tt.scanFields,
				MaxContextSize: tt.maxSize,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.before, result.Before)
			assert.Equal(t, tt.after, result.After)
		})
	}
}

func TestEngine_Sticky(t *testing.T) {
	engine := NewEngine(loadTestBook(t), nil, 0)
	ctx := context.Background()
	oath := "The knights swore an oath of silence."

	lookup := func(dryRun bool, text string) string {
		result, err := engine.Lookup(ctx, Request{Content: []string{text}, DryRun: dryRun})
		require.NoError(t, err)
		return result.Before
	}

	// A dry run does not arm the sticky entry.
	assert.Contains(t, lookup(true, "the oath"), oath)
	assert.NotContains(t, lookup(false, "nothing"), oath)

	assert.Contains(t, lookup(false, "the oath"), oath)
	// Dry runs in between do not consume sticky turns.
	assert.Contains(t, lookup(true, "nothing"), oath)
	assert.Contains(t, lookup(true, "nothing"), oath)
	assert.Contains(t, lookup(false, "nothing"), oath)
	assert.Contains(t, lookup(false, "nothing"), oath)
	assert.NotContains(t, lookup(false, "nothing"), oath)
}

func TestEngine_Lookup_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(loadTestBook(t), nil, 0).Lookup(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func TestEngine_CustomCounter(t *testing.T) {
	engine := NewEngine(loadTestBook(t), fixedCounter(10), 0)

	result, err := engine.Lookup(context.Background(), Request{Content: []string{"sword lake"}, MaxContextSize: 20})
	require.NoError(t, err)
	assert.Equal(t, "Eldoria is a kingdom of mist.\nExcalibur lies beneath the lake.", result.Before)
	assert.Empty(t, result.After)
}

func TestEstimateCounter(t *testing.T) {
	assert.Equal(t, 0, EstimateCounter{}.Count(""))
	assert.Equal(t, 1, EstimateCounter{}.Count("abcd"))
	assert.Equal(t, 2, EstimateCounter{}.Count("abcde"))
}
