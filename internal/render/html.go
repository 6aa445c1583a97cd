// Package render turns parsed chapters into pages: HTML for the server,
// ANSI for the terminal commands. Block typing decides the presentation;
// the embedded code is never touched beyond escaping.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/zPat/easy-edgedb/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// HTML renders book pages. Prose goes through goldmark; code blocks are
// emitted verbatim inside <pre><code> with a caption per language.
type HTML struct {
	md goldmark.Markdown
}

func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Page carries what every view shares.
type Page struct {
	Title     string
	WatchMode bool
}

// BlockView is one rendered block of a chapter page.
type BlockView struct {
	IsCode  bool
	Caption string
	Lang    string
	Code    string
	Prose   template.HTML
}

type TOCView struct {
	Page
	Chapters []domain.ChapterSummary
}

type ChapterView struct {
	Page
	Number        int
	ChapterTitle  string
	Tags          []string
	Blocks        []BlockView
	Nav           domain.Navigation
	HasQuiz       bool
	QuestionCount int
	HasAnswers    bool
	HasCode       bool
}

type CompanionView struct {
	Page
	Number  int
	Heading string
	Blocks  []BlockView
}

type SearchHit struct {
	Chapter int
	Title   string
	Snippet template.HTML
}

type SearchView struct {
	Page
	Query   string
	Results []SearchHit
}

type ErrorView struct {
	Page
	Status  int
	Message string
}

func (r *HTML) TOC(w io.Writer, view TOCView) error {
	return templates.ExecuteTemplate(w, "toc.html", view)
}

func (r *HTML) Chapter(w io.Writer, view ChapterView) error {
	return templates.ExecuteTemplate(w, "chapter.html", view)
}

func (r *HTML) Companion(w io.Writer, view CompanionView) error {
	return templates.ExecuteTemplate(w, "companion.html", view)
}

func (r *HTML) Search(w io.Writer, view SearchView) error {
	return templates.ExecuteTemplate(w, "search.html", view)
}

func (r *HTML) Error(w io.Writer, view ErrorView) error {
	return templates.ExecuteTemplate(w, "error.html", view)
}

// Blocks prepares chapter blocks for the templates.
func (r *HTML) Blocks(blocks []domain.Block) ([]BlockView, error) {
	views := make([]BlockView, 0, len(blocks))
	for _, block := range blocks {
		if block.Kind == domain.BlockCode {
			views = append(views, BlockView{
				IsCode:  true,
				Caption: caption(block.Lang),
				Lang:    block.Lang,
				Code:    block.Text,
			})
			continue
		}
		prose, err := r.Prose(block.Text)
		if err != nil {
			return nil, err
		}
		views = append(views, BlockView{Prose: prose})
	}
	return views, nil
}

// Prose renders markdown prose to HTML.
func (r *HTML) Prose(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render prose: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Snippet makes a search snippet safe for HTML while keeping the <mark>
// highlights the index put there.
func Snippet(s string) template.HTML {
	esc := template.HTMLEscapeString(s)
	esc = strings.ReplaceAll(esc, "&lt;mark&gt;", "<mark>")
	esc = strings.ReplaceAll(esc, "&lt;/mark&gt;", "</mark>")
	return template.HTML(esc)
}

// caption labels a code block for the reader the way the book talks about
// it: schema definitions, queries, or a REPL transcript.
func caption(lang string) string {
	switch lang {
	case domain.LangSDL:
		return "Schema"
	case domain.LangEdgeQL:
		return "Query"
	case domain.LangREPL:
		return "REPL"
	case "":
		return "Code"
	default:
		return lang
	}
}
