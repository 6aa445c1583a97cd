package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// Term renders chapters for the terminal commands and the TUI.
type Term struct {
	renderer *glamour.TermRenderer
}

func NewTerm(width int) (*Term, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("term renderer: %w", err)
	}
	return &Term{renderer: renderer}, nil
}

// Chapter renders a whole chapter, title included.
func (t *Term) Chapter(ch domain.Chapter) (string, error) {
	return t.Markdown(ch.Markdown())
}

// Markdown renders raw markdown.
func (t *Term) Markdown(src string) (string, error) {
	out, err := t.renderer.Render(src)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// Question formats one practice question for the terminal walkthrough.
func (t *Term) Question(index int, question string) (string, error) {
	return t.Markdown(fmt.Sprintf("**%d.** %s", index+1, question))
}

// Answer formats a revealed answer. Answers may span several markdown
// blocks, so they render as-is under a small heading.
func (t *Term) Answer(index int, answer string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "_Answer %d:_\n\n", index+1)
	b.WriteString(answer)
	b.WriteString("\n")
	return t.Markdown(b.String())
}
