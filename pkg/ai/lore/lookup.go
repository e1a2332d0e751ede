package lore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	log "github.com/cloudposse/weave/pkg/logger"
)

// Request is one lookup over chat text.
type Request struct {
	// Content holds the chat messages to scan, oldest first.
	Content []string
	// MaxContextSize caps the tokens of activated content. Zero means no cap.
	MaxContextSize int
	// DryRun lookups leave sticky state untouched.
	DryRun bool
	// ScanFields are extra texts (character description, scenario) scanned in full.
	ScanFields []string
}

// Result holds the assembled entry texts.
type Result struct {
	Before string
	After  string
}

// Lookup finds the lore text for a request.
type Lookup interface {
	Lookup(ctx context.Context, req Request) (Result, error)
}

// Engine activates entries of a book.
type Engine struct {
	book      *Book
	counter   Counter
	scanDepth int

	mu sync.Mutex
	// sticky maps entry uids to the number of live lookups they stay active for.
	sticky map[int]int
}

// Ensure Engine implements the Lookup interface.
var _ Lookup = (*Engine)(nil)

// NewEngine creates an engine scanning the newest scanDepth messages.
// A nil counter estimates tokens.
func NewEngine(book *Book, counter Counter, scanDepth int) *Engine {
	if counter == nil {
		counter = EstimateCounter{}
	}
	return &Engine{
		book:      book,
		counter:   counter,
		scanDepth: scanDepth,
		sticky:    make(map[int]int),
	}
}

// Lookup implements Lookup.
func (e *Engine) Lookup(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text := e.scanText(req)

	e.mu.Lock()
	defer e.mu.Unlock()

	active := lo.Filter(e.book.Entries, func(entry Entry, _ int) bool {
		if entry.Disabled {
			return false
		}
		return entry.Constant || e.sticky[entry.UID] > 0 || entry.matches(text)
	})

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order > active[j].Order
	})

	var before, after []string
	used := 0
	for _, entry := range active {
		tokens := e.counter.Count(entry.Content)
		if req.MaxContextSize > 0 && used+tokens > req.MaxContextSize {
			log.Debug("Lore budget exhausted", "uid", entry.UID, "tokens", tokens, "used", used, "budget", req.MaxContextSize)
			continue
		}
		used += tokens

		if entry.Position == PositionAfter {
			after = append(after, entry.Content)
		} else {
			before = append(before, entry.Content)
		}
	}

	if !req.DryRun {
		e.advanceSticky(text)
	}

	log.Debug("Lore lookup", "activated", len(active), "tokens", used, "dry_run", req.DryRun)

	return Result{
		Before: strings.Join(before, "\n"),
		After:  strings.Join(after, "\n"),
	}, nil
}

// scanText returns the lowercased text keys are matched against.
func (e *Engine) scanText(req Request) string {
	content := req.Content
	if e.scanDepth > 0 && len(content) > e.scanDepth {
		content = content[len(content)-e.scanDepth:]
	}
	parts := append(append([]string{}, content...), req.ScanFields...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// advanceSticky decrements running sticky counters, then arms entries matched by key
// in this lookup. Must be called with mu held.
func (e *Engine) advanceSticky(text string) {
	for uid, n := range e.sticky {
		if n <= 1 {
			delete(e.sticky, uid)
		} else {
			e.sticky[uid] = n - 1
		}
	}
	for i := range e.book.Entries {
		entry := &e.book.Entries[i]
		if entry.Sticky > 0 && !entry.Disabled && entry.matches(text) {
			e.sticky[entry.UID] = entry.Sticky
		}
	}
}
