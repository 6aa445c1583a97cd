// Package fs loads the book from a content directory laid out as
// chapterN/index.md with optional answers.md and code.md siblings, and
// watches it for edits.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zPat/easy-edgedb/internal/content"
	"github.com/zPat/easy-edgedb/internal/domain"
)

// Loader reads chapters straight from the content directory.
type Loader struct {
	root string
}

func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// LoadBook parses every chapter directory under the root. Two directories
// claiming the same ordinal is an error; everything subtler is left to the
// integrity check.
func (l *Loader) LoadBook(ctx context.Context) ([]domain.Chapter, error) {
	dirs, err := l.chapterDirs()
	if err != nil {
		return nil, err
	}

	chapters := make([]domain.Chapter, 0, len(dirs))
	seen := make(map[int]string, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ch, err := l.loadChapterDir(dir)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[ch.Number]; dup {
			return nil, fmt.Errorf("chapter %d defined by both %s and %s", ch.Number, prev, dir)
		}
		seen[ch.Number] = dir
		chapters = append(chapters, ch)
	}

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	return chapters, nil
}

// LoadChapter parses a single chapter by ordinal.
func (l *Loader) LoadChapter(ctx context.Context, number int) (domain.Chapter, error) {
	dirs, err := l.chapterDirs()
	if err != nil {
		return domain.Chapter{}, err
	}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return domain.Chapter{}, err
		}
		if n, ok := content.ChapterNumber(filepath.Join(dir, "index.md")); ok && n == number {
			return l.loadChapterDir(dir)
		}
	}
	return domain.Chapter{}, domain.ErrChapterNotFound
}

// chapterDirs returns the chapter directories as paths relative to the root.
func (l *Loader) chapterDirs() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(l.root), "chapter*/index.md")
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	dirs := make([]string, 0, len(matches))
	for _, match := range matches {
		dirs = append(dirs, filepath.Dir(filepath.FromSlash(match)))
	}
	return dirs, nil
}

// loadChapterDir parses index.md and attaches whichever companion documents
// exist. A quiz whose answers file is missing loads fine; the integrity
// check, not the loader, reports that.
func (l *Loader) loadChapterDir(dir string) (domain.Chapter, error) {
	indexPath := filepath.Join(l.root, dir, "index.md")
	src, err := os.ReadFile(indexPath)
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("read %s: %w", indexPath, err)
	}
	ch, err := content.ParseChapter(indexPath, src)
	if err != nil {
		return domain.Chapter{}, err
	}

	answersName := "answers.md"
	if ch.HasQuiz() && ch.Quiz.AnswersLink != "" {
		answersName = ch.Quiz.AnswersLink
	}
	answersPath := filepath.Join(l.root, dir, filepath.FromSlash(answersName))
	if src, err := os.ReadFile(answersPath); err == nil {
		answers, err := content.ParseAnswers(answersPath, src)
		if err != nil {
			return domain.Chapter{}, err
		}
		ch.Answers = &answers
	}

	codePath := filepath.Join(l.root, dir, "code.md")
	if src, err := os.ReadFile(codePath); err == nil {
		code, err := content.ParseCode(codePath, src)
		if err != nil {
			return domain.Chapter{}, err
		}
		ch.CodeSoFar = &code
	}

	return ch, nil
}
