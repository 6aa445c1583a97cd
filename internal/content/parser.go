// Package content parses the book's markdown sources into chapters, blocks,
// quizzes and companion documents. Parsing is structural only: fence labels
// and literal text are preserved, the embedded SDL/EdgeQL is never validated.
package content

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// practiceHeading delimits the start of a chapter's quiz region; the region
// ends at the required answers link.
const practiceHeading = "time to practice"

// ParseError reports malformed chapter structure with its source position.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

var (
	numberedDirRe  = regexp.MustCompile(`^chapter(\d+)$`)
	titleRe        = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	headingRe      = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	questionRe     = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)
	answersLinkRe  = regexp.MustCompile(`^\[[^\]]+\]\(([^)]+)\)`)
	fenceRe        = regexp.MustCompile("^```")
	closingFenceRe = regexp.MustCompile("^```+\\s*$")
)

// ChapterNumber derives the ordinal position from a source path: the
// enclosing chapter directory (chapter14/index.md) or, failing that, the file
// stem (chapter14.md).
func ChapterNumber(path string) (int, bool) {
	dir := filepath.Base(filepath.Dir(path))
	if m := numberedDirRe.FindStringSubmatch(dir); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := numberedDirRe.FindStringSubmatch(stem); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	return 0, false
}

// ParseChapter turns one index.md into a Chapter. The source must carry a
// metadata header (may be empty), a single # title, balanced code fences and,
// when it has a practice region, the answers link that closes it.
func ParseChapter(path string, src []byte) (domain.Chapter, error) {
	number, ok := ChapterNumber(path)
	if !ok {
		return domain.Chapter{}, &ParseError{Path: path, Line: 1, Msg: "cannot derive a chapter number from the path"}
	}

	tags, body, bodyLine, perr := splitHeader(src)
	if perr != nil {
		perr.Path = path
		return domain.Chapter{}, perr
	}

	blocks, perr := ScanBlocks(body, bodyLine)
	if perr != nil {
		perr.Path = path
		return domain.Chapter{}, perr
	}

	title := findTitle(blocks)
	if title == "" {
		return domain.Chapter{}, &ParseError{Path: path, Line: bodyLine, Msg: "chapter has no title heading"}
	}

	quiz, perr := ExtractQuiz(blocks)
	if perr != nil {
		perr.Path = path
		return domain.Chapter{}, perr
	}

	return domain.Chapter{
		Number: number,
		Title:  title,
		Tags:   tags,
		Blocks: blocks,
		Quiz:   quiz,
	}, nil
}

// ParseAnswers parses a chapter's answers.md: numbered items in question
// order, each item running until the next number at column zero.
func ParseAnswers(path string, src []byte) (domain.Answers, error) {
	lines := splitLines(src)
	blocks, perr := ScanBlocks(lines, 1)
	if perr != nil {
		perr.Path = path
		return domain.Answers{}, perr
	}

	var (
		items   []string
		current []string
		open    bool
		inFence bool
	)
	flush := func() {
		if open {
			items = append(items, strings.TrimSpace(strings.Join(current, "\n")))
			current = current[:0]
		}
	}
	for _, line := range lines {
		if fenceRe.MatchString(line) {
			if inFence && closingFenceRe.MatchString(line) {
				inFence = false
			} else if !inFence {
				inFence = true
			}
			if open {
				current = append(current, line)
			}
			continue
		}
		if !inFence {
			if m := questionRe.FindStringSubmatch(line); m != nil {
				flush()
				open = true
				current = append(current, m[2])
				continue
			}
		}
		if open {
			current = append(current, line)
		}
	}
	flush()

	return domain.Answers{Items: items, Blocks: blocks, Raw: string(src)}, nil
}

// ParseCode parses a chapter's code.md (the cumulative schema listing).
func ParseCode(path string, src []byte) (domain.CodeSoFar, error) {
	lines := splitLines(src)
	blocks, perr := ScanBlocks(lines, 1)
	if perr != nil {
		perr.Path = path
		return domain.CodeSoFar{}, perr
	}
	return domain.CodeSoFar{Blocks: blocks, Raw: string(src)}, nil
}

// splitHeader strips the leading --- metadata header and returns the tag
// list, the remaining body lines and the 1-based line the body starts on.
func splitHeader(src []byte) ([]string, []string, int, *ParseError) {
	lines := splitLines(src)
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != "---" {
		return nil, lines, 1, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") != "---" {
			continue
		}
		header := strings.Join(lines[1:i], "\n")
		var raw map[string]any
		if err := yaml.Unmarshal([]byte(header), &raw); err != nil {
			return nil, nil, 0, &ParseError{Line: 2, Msg: fmt.Sprintf("malformed metadata header: %v", err)}
		}
		return parseTags(raw["tags"]), lines[i+1:], i + 2, nil
	}
	return nil, nil, 0, &ParseError{Line: 1, Msg: "metadata header is never closed"}
}

func parseTags(v any) []string {
	var tags []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tags = append(tags, strings.TrimSpace(s))
			}
		}
	}
	return tags
}

// ScanBlocks walks body lines and produces the ordered prose/code blocks.
// startLine is the 1-based position of lines[0] in the source file, so block
// positions survive the stripped metadata header.
func ScanBlocks(lines []string, startLine int) ([]domain.Block, *ParseError) {
	var (
		blocks    []domain.Block
		prose     []string
		proseLine int
		code      []string
		codeLang  string
		fenceLine int
		inFence   bool
	)

	flushProse := func() {
		text := strings.Trim(strings.Join(prose, "\n"), "\n")
		if text != "" {
			blocks = append(blocks, domain.Block{Kind: domain.BlockProse, Text: text, Line: proseLine})
		}
		prose = prose[:0]
		proseLine = 0
	}

	for i, line := range lines {
		abs := startLine + i
		if fenceRe.MatchString(line) {
			if inFence {
				if !closingFenceRe.MatchString(line) {
					// a labelled fence inside an open block is literal text
					code = append(code, line)
					continue
				}
				text := strings.Join(code, "\n")
				if text != "" {
					text += "\n"
				}
				blocks = append(blocks, domain.Block{Kind: domain.BlockCode, Lang: codeLang, Text: text, Line: fenceLine})
				code = code[:0]
				inFence = false
				continue
			}
			flushProse()
			inFence = true
			fenceLine = abs
			codeLang = strings.TrimSpace(strings.TrimLeft(strings.TrimRight(line, "\r"), "`"))
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		if proseLine == 0 && strings.TrimSpace(line) != "" {
			proseLine = abs
		}
		prose = append(prose, line)
	}

	if inFence {
		return nil, &ParseError{Line: fenceLine, Msg: fmt.Sprintf("code block opened at line %d is never closed", fenceLine)}
	}
	flushProse()
	return blocks, nil
}

func findTitle(blocks []domain.Block) string {
	for _, b := range blocks {
		if b.Kind != domain.BlockProse {
			continue
		}
		for _, line := range strings.Split(b.Text, "\n") {
			if m := titleRe.FindStringSubmatch(line); m != nil && !strings.EqualFold(m[1], practiceHeading) {
				return m[1]
			}
		}
	}
	return ""
}

// ExtractQuiz locates the practice region in the parsed blocks. It is a pure
// function: nil means the chapter simply has no quiz. A started region must
// end with its answers link before the next heading or end of chapter.
func ExtractQuiz(blocks []domain.Block) (*domain.Quiz, *ParseError) {
	var (
		quiz     *domain.Quiz
		inQuiz   bool
		question string
	)
	endQuestion := func() {
		if question != "" {
			quiz.Questions = append(quiz.Questions, strings.TrimSpace(question))
			question = ""
		}
	}

	for _, b := range blocks {
		if b.Kind != domain.BlockProse {
			continue // fenced code inside the region belongs to the body, not to a question
		}
		for off, line := range strings.Split(b.Text, "\n") {
			abs := b.Line + off
			if m := headingRe.FindStringSubmatch(line); m != nil {
				if strings.EqualFold(m[2], practiceHeading) {
					if quiz != nil {
						return nil, &ParseError{Line: abs, Msg: "chapter has more than one practice section"}
					}
					quiz = &domain.Quiz{Line: abs}
					inQuiz = true
					continue
				}
				if inQuiz {
					return nil, &ParseError{Line: quiz.Line, Msg: "practice section is missing its answers link"}
				}
				continue
			}
			if !inQuiz {
				continue
			}
			if m := answersLinkRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				endQuestion()
				quiz.AnswersLink = m[1]
				inQuiz = false
				continue
			}
			if m := questionRe.FindStringSubmatch(line); m != nil {
				endQuestion()
				question = m[2]
				continue
			}
			if question != "" && strings.TrimSpace(line) != "" {
				question += " " + strings.TrimSpace(line)
			}
		}
	}

	if inQuiz {
		return nil, &ParseError{Line: quiz.Line, Msg: "practice section is missing its answers link"}
	}
	return quiz, nil
}

func splitLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}
	return strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
}
