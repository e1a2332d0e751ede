package errors

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

// DefaultMaxLineLength is where messages are wrapped unless configured otherwise.
const DefaultMaxLineLength = 80

// FormatterConfig controls how Format renders an error.
type FormatterConfig struct {
	// Verbose adds the context pairs and the full error chain with stack traces.
	Verbose bool

	// Color is "auto", "always" or "never".
	Color string

	// MaxLineLength wraps the message and explanation; zero means DefaultMaxLineLength.
	MaxLineLength int
}

func DefaultFormatterConfig() FormatterConfig {
	return FormatterConfig{Color: "auto", MaxLineLength: DefaultMaxLineLength}
}

type styles struct {
	message lipgloss.Style
	detail  lipgloss.Style
	hint    lipgloss.Style
	label   lipgloss.Style
}

func newStyles(color bool) styles {
	s := styles{
		message: lipgloss.NewStyle(),
		detail:  lipgloss.NewStyle(),
		hint:    lipgloss.NewStyle(),
		label:   lipgloss.NewStyle(),
	}
	if color {
		s.message = s.message.Foreground(lipgloss.Color("#FF0000")).Bold(true)
		s.detail = s.detail.Foreground(lipgloss.Color("#AAAAAA"))
		s.hint = s.hint.Foreground(lipgloss.Color("#00AFFF"))
		s.label = s.label.Foreground(lipgloss.Color("#FFAF00"))
	}
	return s
}

// Format renders an error for the terminal: the message, any explanation, the hints and,
// in verbose mode, the context pairs followed by the full chain.
func Format(err error, config FormatterConfig) string {
	if err == nil {
		return ""
	}

	width := config.MaxLineLength
	if width <= 0 {
		width = DefaultMaxLineLength
	}
	st := newStyles(shouldUseColor(config.Color))

	var sections []string

	msg := err.Error()
	if !config.Verbose {
		msg = wrapText(msg, width)
	}
	sections = append(sections, st.message.Render(msg))

	if details := errors.GetAllDetails(err); len(details) > 0 {
		sections = append(sections, st.detail.Render(wrapText(strings.Join(details, " "), width)))
	}

	if hints := errors.GetAllHints(err); len(hints) > 0 {
		lines := make([]string, len(hints))
		for i, hint := range hints {
			lines[i] = "    " + st.hint.Render("hint: "+hint)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if config.Verbose {
		if pairs := contextPairs(err); len(pairs) > 0 {
			lines := []string{st.label.Render("context:")}
			for _, p := range pairs {
				lines = append(lines, fmt.Sprintf("  %s: %s", p[0], p[1]))
			}
			sections = append(sections, strings.Join(lines, "\n"))
		}
		sections = append(sections, fmt.Sprintf("%+v", err))
	}

	return strings.Join(sections, "\n\n")
}

// contextPairs recovers the key=value details attached by ErrorBuilder.WithContext.
func contextPairs(err error) [][2]string {
	var pairs [][2]string
	for _, payload := range errors.GetAllSafeDetails(err) {
		for _, detail := range payload.SafeDetails {
			for _, field := range strings.Fields(detail) {
				if key, value, ok := strings.Cut(field, "="); ok {
					pairs = append(pairs, [2]string{key, value})
				}
			}
		}
	}
	return pairs
}

func shouldUseColor(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

func wrapText(text string, width int) string {
	if width <= 0 {
		width = DefaultMaxLineLength
	}
	return wordwrap.WrapString(text, uint(width))
}
