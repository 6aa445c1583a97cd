// Package tui is the terminal book reader: a viewport over glamour-rendered
// chapters with chapter-to-chapter navigation.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 1)
)

// Reader is the bubbletea model. It keeps the raw chapter markdown and
// re-renders through glamour whenever the window size changes.
type Reader struct {
	ctx  context.Context
	book *app.BookService

	summaries []domain.ChapterSummary
	pos       int

	viewport viewport.Model
	renderer *glamour.TermRenderer
	raw      string
	title    string

	width  int
	height int
	ready  bool
	err    error
}

// NewReader loads the table of contents and the starting chapter. start is
// a chapter number; 0 opens the first chapter.
func NewReader(ctx context.Context, book *app.BookService, start int) (Reader, error) {
	summaries, err := book.Summaries(ctx)
	if err != nil {
		return Reader{}, err
	}
	if len(summaries) == 0 {
		return Reader{}, fmt.Errorf("the book has no chapters")
	}

	pos := 0
	for i, s := range summaries {
		if s.Number == start {
			pos = i
			break
		}
	}

	r := Reader{ctx: ctx, book: book, summaries: summaries}
	if err := r.load(pos); err != nil {
		return Reader{}, err
	}
	return r, nil
}

func (r *Reader) load(pos int) error {
	ch, _, err := r.book.GetChapter(r.ctx, r.summaries[pos].Number)
	if err != nil {
		return err
	}
	r.pos = pos
	r.raw = ch.Markdown()
	r.title = fmt.Sprintf("Chapter %d — %s", ch.Number, ch.Title)
	return r.rerender()
}

// rerender pushes the current chapter through glamour into the viewport.
// Before the first WindowSizeMsg there is no renderer yet; the resize
// handler calls back in.
func (r *Reader) rerender() error {
	if r.renderer == nil {
		return nil
	}
	out, err := r.renderer.Render(r.raw)
	if err != nil {
		return err
	}
	r.viewport.SetContent(out)
	r.viewport.GotoTop()
	return nil
}

func (r Reader) Init() tea.Cmd { return nil }

func (r Reader) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return r, tea.Quit
		case "right", "l", "n":
			if r.pos+1 < len(r.summaries) {
				r.err = r.load(r.pos + 1)
			}
			return r, nil
		case "left", "h", "p":
			if r.pos > 0 {
				r.err = r.load(r.pos - 1)
			}
			return r, nil
		case "g", "home":
			r.viewport.GotoTop()
			return r, nil
		case "G", "end":
			r.viewport.GotoBottom()
			return r, nil
		}

	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height

		headerHeight := 1
		footerHeight := 1
		if !r.ready {
			r.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			r.ready = true
		} else {
			r.viewport.Width = msg.Width
			r.viewport.Height = msg.Height - headerHeight - footerHeight
		}

		wrap := msg.Width - 2
		if wrap > 100 {
			wrap = 100
		}
		if wrap < 20 {
			wrap = 20
		}
		r.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		r.err = r.rerender()
	}

	var cmd tea.Cmd
	r.viewport, cmd = r.viewport.Update(msg)
	return r, cmd
}

func (r Reader) View() string {
	if !r.ready {
		return "Loading…"
	}

	header := titleStyle.Render(fmt.Sprintf("%s  (%d/%d)", r.title, r.pos+1, len(r.summaries)))
	footer := helpStyle.Render("←/→ chapters · ↑/↓ scroll · g/G top/bottom · q quit")
	if r.err != nil {
		footer = errStyle.Render("error: " + r.err.Error())
	}
	return header + "\n" + r.viewport.View() + "\n" + footer
}
