package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// Rules a Violation can carry.
const (
	RuleTitle    = "title"
	RuleOrdinal  = "ordinal"
	RuleFence    = "fence"
	RuleMetadata = "metadata"
	RulePractice = "practice"
	RuleAnswers  = "answers"
)

// Violation is one integrity finding. Line is zero when the finding concerns
// a whole file or directory rather than a position.
type Violation struct {
	Path string
	Line int
	Rule string
	Msg  string
}

func (v Violation) String() string {
	if v.Line > 0 {
		return fmt.Sprintf("%s:%d: [%s] %s", v.Path, v.Line, v.Rule, v.Msg)
	}
	return fmt.Sprintf("%s: [%s] %s", v.Path, v.Rule, v.Msg)
}

// Check walks a content root and reports every integrity violation it finds.
// It keeps going past broken chapters so one bad file does not hide the rest;
// the error return is for I/O trouble only.
func Check(fsys fs.FS) ([]Violation, error) {
	matches, err := doublestar.Glob(fsys, "chapter*/index.md")
	if err != nil {
		return nil, fmt.Errorf("walk content root: %w", err)
	}

	var violations []Violation
	type entry struct {
		dir    string
		number int
	}
	var entries []entry
	seen := map[int]string{}

	for _, match := range matches {
		dir := path.Dir(match)
		number, ok := ChapterNumber(match)
		if !ok {
			violations = append(violations, Violation{
				Path: dir, Rule: RuleOrdinal,
				Msg: "directory name does not carry a chapter number",
			})
			continue
		}
		if prev, dup := seen[number]; dup {
			violations = append(violations, Violation{
				Path: dir, Rule: RuleOrdinal,
				Msg: fmt.Sprintf("chapter %d already defined by %s", number, prev),
			})
			continue
		}
		seen[number] = dir
		entries = append(entries, entry{dir: dir, number: number})
		violations = append(violations, checkChapter(fsys, dir, match)...)
	}

	if len(entries) == 0 {
		violations = append(violations, Violation{
			Path: ".", Rule: RuleOrdinal, Msg: "no chapters found under the content root",
		})
		return violations, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].number < entries[j].number })
	if first := entries[0].number; first != 1 {
		violations = append(violations, Violation{
			Path: entries[0].dir, Rule: RuleOrdinal,
			Msg: fmt.Sprintf("book starts at chapter %d, expected chapter 1", first),
		})
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].number != entries[i-1].number+1 {
			violations = append(violations, Violation{
				Path: entries[i].dir, Rule: RuleOrdinal,
				Msg: fmt.Sprintf("chapter %d leaves a gap after chapter %d", entries[i].number, entries[i-1].number),
			})
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Path != violations[j].Path {
			return violations[i].Path < violations[j].Path
		}
		return violations[i].Line < violations[j].Line
	})
	return violations, nil
}

// checkChapter validates a single index.md and its companion files. The
// pipeline mirrors ParseChapter but records findings instead of stopping at
// the first one.
func checkChapter(fsys fs.FS, dir, indexPath string) []Violation {
	var violations []Violation

	src, err := fs.ReadFile(fsys, indexPath)
	if err != nil {
		return []Violation{{Path: indexPath, Rule: RuleMetadata, Msg: fmt.Sprintf("unreadable: %v", err)}}
	}

	_, body, bodyLine, perr := splitHeader(src)
	if perr != nil {
		return []Violation{{Path: indexPath, Line: perr.Line, Rule: RuleMetadata, Msg: perr.Msg}}
	}

	blocks, perr := ScanBlocks(body, bodyLine)
	if perr != nil {
		return []Violation{{Path: indexPath, Line: perr.Line, Rule: RuleFence, Msg: perr.Msg}}
	}

	titles := titleLines(blocks)
	switch {
	case len(titles) == 0:
		violations = append(violations, Violation{
			Path: indexPath, Line: bodyLine, Rule: RuleTitle, Msg: "chapter has no title heading",
		})
	case len(titles) > 1:
		violations = append(violations, Violation{
			Path: indexPath, Line: titles[1], Rule: RuleTitle,
			Msg: fmt.Sprintf("chapter has %d title headings, expected one", len(titles)),
		})
	}

	quiz, perr := ExtractQuiz(blocks)
	if perr != nil {
		violations = append(violations, Violation{Path: indexPath, Line: perr.Line, Rule: RulePractice, Msg: perr.Msg})
		return violations
	}
	if quiz == nil {
		return violations
	}

	answersPath := path.Join(dir, path.Clean(quiz.AnswersLink))
	answersSrc, err := fs.ReadFile(fsys, answersPath)
	if err != nil {
		violations = append(violations, Violation{
			Path: indexPath, Line: quiz.Line, Rule: RulePractice,
			Msg: fmt.Sprintf("answers link points at missing file %s", quiz.AnswersLink),
		})
		return violations
	}

	answers, err := ParseAnswers(answersPath, answersSrc)
	if err != nil {
		var aerr *ParseError
		if errors.As(err, &aerr) {
			violations = append(violations, Violation{Path: answersPath, Line: aerr.Line, Rule: RuleFence, Msg: aerr.Msg})
		} else {
			violations = append(violations, Violation{Path: answersPath, Rule: RuleAnswers, Msg: err.Error()})
		}
		return violations
	}
	if len(answers.Items) != len(quiz.Questions) {
		violations = append(violations, Violation{
			Path: answersPath, Rule: RuleAnswers,
			Msg: fmt.Sprintf("%d answers for %d questions", len(answers.Items), len(quiz.Questions)),
		})
	}
	return violations
}

// titleLines reports every non-practice # heading, in order of appearance.
func titleLines(blocks []domain.Block) []int {
	var lines []int
	for _, b := range blocks {
		if b.Kind != domain.BlockProse {
			continue
		}
		for off, line := range strings.Split(b.Text, "\n") {
			if m := titleRe.FindStringSubmatch(line); m != nil && !strings.EqualFold(m[1], practiceHeading) {
				lines = append(lines, b.Line+off)
			}
		}
	}
	return lines
}
