package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zPat/easy-edgedb/internal/content"
	"github.com/zPat/easy-edgedb/internal/domain"
)

func writeBook(t *testing.T, root string, chapters map[string]map[string]string) {
	t.Helper()
	for dir, files := range chapters {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		for name, body := range files {
			if err := os.WriteFile(filepath.Join(root, dir, name), []byte(body), 0o644); err != nil {
				t.Fatalf("write %s/%s: %v", dir, name, err)
			}
		}
	}
}

func smallBook(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeBook(t, root, map[string]map[string]string{
		"chapter1": {
			"index.md": "---\ntags: Insert\n---\n\n# Jonathan takes the train\n\nSome prose.\n\n```sdl\ntype City;\n```\n\n# Time to practice\n\n1. A question?\n\n[See the answers here.](answers.md)\n",
			"answers.md": "1. An answer.\n",
			"code.md":    "```sdl\ntype City;\n```\n",
		},
		"chapter2": {
			"index.md": "# The Golden Krone Hotel\n\nNo quiz here.\n",
		},
	})
	return root
}

func TestLoaderLoadBook(t *testing.T) {
	loader := NewLoader(smallBook(t))

	book, err := loader.LoadBook(context.Background())
	if err != nil {
		t.Fatalf("load book: %v", err)
	}
	if len(book) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(book))
	}
	if book[0].Number != 1 || book[1].Number != 2 {
		t.Fatalf("unexpected order: %d, %d", book[0].Number, book[1].Number)
	}
	if book[0].Title != "Jonathan takes the train" {
		t.Fatalf("unexpected title %q", book[0].Title)
	}

	if !book[0].HasQuiz() {
		t.Fatal("chapter 1 lost its quiz")
	}
	if book[0].Answers == nil || len(book[0].Answers.Items) != 1 {
		t.Fatalf("chapter 1 lost its answers: %+v", book[0].Answers)
	}
	if book[0].CodeSoFar == nil {
		t.Fatal("chapter 1 lost its code listing")
	}
	if book[1].Answers != nil || book[1].CodeSoFar != nil {
		t.Fatal("chapter 2 has companions it should not have")
	}
}

func TestLoaderLoadChapter(t *testing.T) {
	loader := NewLoader(smallBook(t))

	ch, err := loader.LoadChapter(context.Background(), 2)
	if err != nil {
		t.Fatalf("load chapter: %v", err)
	}
	if ch.Title != "The Golden Krone Hotel" {
		t.Fatalf("unexpected title %q", ch.Title)
	}

	if _, err := loader.LoadChapter(context.Background(), 9); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
}

func TestLoaderDuplicateOrdinal(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, map[string]map[string]string{
		"chapter2":  {"index.md": "# One of them\n"},
		"chapter02": {"index.md": "# The other\n"},
	})

	_, err := NewLoader(root).LoadBook(context.Background())
	if err == nil || !strings.Contains(err.Error(), "defined by both") {
		t.Fatalf("expected a duplicate ordinal error, got %v", err)
	}
}

func TestLoaderSurfacesParseErrors(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, map[string]map[string]string{
		"chapter1": {"index.md": "# Broken\n\n```sdl\ntype City {\n"},
	})

	_, err := NewLoader(root).LoadBook(context.Background())
	var perr *content.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if !strings.Contains(perr.Path, filepath.Join("chapter1", "index.md")) {
		t.Fatalf("parse error lost its path: %q", perr.Path)
	}
}
