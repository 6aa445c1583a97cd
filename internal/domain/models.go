package domain

import "time"

// Block languages the book's chapters use. The fence label decides rendering
// style only; the embedded code is never validated or executed here.
const (
	LangSDL    = "sdl"         // schema definition blocks
	LangEdgeQL = "edgeql"      // query blocks
	LangREPL   = "edgeql-repl" // console transcripts (query plus printed result)
)

// BlockKind separates narrative prose from fenced code.
type BlockKind string

const (
	BlockProse BlockKind = "prose"
	BlockCode  BlockKind = "code"
)

// Block is one ordered fragment of a chapter body: either a run of prose or a
// single fenced code block with its literal text preserved.
type Block struct {
	Kind BlockKind `json:"kind"`
	Lang string    `json:"lang,omitempty"` // fence label; empty for prose and plain fences
	Text string    `json:"text"`
	Line int       `json:"line"` // 1-based line of the block start in the source file
}

// Quiz is the practice region at the end of a chapter: ordered open-ended
// questions followed by a link to the worked answers.
type Quiz struct {
	Questions   []string `json:"questions"`
	AnswersLink string   `json:"answersLink"`
	Line        int      `json:"line"`
}

// Answers holds the parsed sibling answers document for a chapter.
type Answers struct {
	Items  []string `json:"items"` // one entry per practice question, in order
	Blocks []Block  `json:"blocks"`
	Raw    string   `json:"raw"`
}

// CodeSoFar is the cumulative schema-and-inserts listing that accompanies a
// chapter ("code up to this point").
type CodeSoFar struct {
	Blocks []Block `json:"blocks"`
	Raw    string  `json:"raw"`
}

// Chapter is one narrative unit of the book. Number is the ordinal position;
// exactly one chapter may occupy a position.
type Chapter struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Tags      []string   `json:"tags,omitempty"` // free-form labels, no uniqueness
	Blocks    []Block    `json:"blocks"`
	Quiz      *Quiz      `json:"quiz,omitempty"`
	Answers   *Answers   `json:"answers,omitempty"`
	CodeSoFar *CodeSoFar `json:"codeSoFar,omitempty"`
}

// HasQuiz reports whether the chapter carries a practice region.
func (c Chapter) HasQuiz() bool { return c.Quiz != nil && len(c.Quiz.Questions) > 0 }

// Markdown reassembles the chapter body (without the metadata header) for
// renderers that consume plain markdown, such as the terminal reader.
func (c Chapter) Markdown() string {
	var out []byte
	for i, b := range c.Blocks {
		if i > 0 {
			out = append(out, '\n')
		}
		if b.Kind == BlockCode {
			out = append(out, "```"...)
			out = append(out, b.Lang...)
			out = append(out, '\n')
			out = append(out, b.Text...)
			if len(b.Text) > 0 && b.Text[len(b.Text)-1] != '\n' {
				out = append(out, '\n')
			}
			out = append(out, "```\n"...)
			continue
		}
		out = append(out, b.Text...)
		if len(b.Text) > 0 && b.Text[len(b.Text)-1] != '\n' {
			out = append(out, '\n')
		}
	}
	return string(out)
}

// ChapterSummary is the table-of-contents view of a chapter.
type ChapterSummary struct {
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	Tags          []string `json:"tags,omitempty"`
	HasQuiz       bool     `json:"hasQuiz"`
	QuestionCount int      `json:"questionCount,omitempty"`
}

// ChapterRef identifies an adjacent chapter for navigation.
type ChapterRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Navigation points at the neighbours of a chapter in reading order. Nil ends
// mean first/last chapter. Adjacency follows the ordered chapter list, so a
// numbering gap does not break navigation.
type Navigation struct {
	Prev *ChapterRef `json:"prev,omitempty"`
	Next *ChapterRef `json:"next,omitempty"`
}

// SearchResult is one full-text match over the book.
type SearchResult struct {
	Chapter int    `json:"chapter"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// PracticeSession tracks a reader walking through a chapter's practice
// questions. Cursor is the index of the next question to hand out.
type PracticeSession struct {
	ID        string    `json:"id"`
	Chapter   int       `json:"chapter"`
	Cursor    int       `json:"cursor"`
	Revealed  int       `json:"revealed"`
	StartedAt time.Time `json:"startedAt"`
}
