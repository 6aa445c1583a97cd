package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zPat/easy-edgedb/internal/domain"
)

type countingLoader struct {
	ChapterLoader
	chapterCalls int
	bookCalls    int
}

func (l *countingLoader) LoadChapter(ctx context.Context, number int) (domain.Chapter, error) {
	l.chapterCalls++
	return l.ChapterLoader.LoadChapter(ctx, number)
}

func (l *countingLoader) LoadBook(ctx context.Context) ([]domain.Chapter, error) {
	l.bookCalls++
	return l.ChapterLoader.LoadBook(ctx)
}

func sampleChapter(number int) domain.Chapter {
	return domain.Chapter{
		Number: number,
		Title:  "Jonathan Harker travels to Transylvania",
		Tags:   []string{"Scalar Types"},
		Blocks: []domain.Block{
			{Kind: domain.BlockProse, Text: "# Jonathan Harker travels to Transylvania", Line: 1},
			{Kind: domain.BlockCode, Lang: domain.LangSDL, Text: "type City {\n  required property name -> str;\n}\n", Line: 3},
		},
	}
}

func TestChapterRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ChapterLoader: NewStaticLoader(map[int]domain.Chapter{1: sampleChapter(1)}),
	}
	repo := NewChapterRepository(loader, time.Minute)

	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if loader.chapterCalls != 1 {
		t.Fatalf("expected loader once, got %d", loader.chapterCalls)
	}

	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter 2: %v", err)
	}
	if loader.chapterCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.chapterCalls)
	}
}

func TestChapterRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		ChapterLoader: NewStaticLoader(map[int]domain.Chapter{1: sampleChapter(1)}),
	}
	repo := NewChapterRepository(loader, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter: %v", err)
	}

	// past the TTL even with the full 10% jitter applied
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter after expiry: %v", err)
	}
	if loader.chapterCalls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.chapterCalls)
	}
}

func TestChapterRepositoryInvalidate(t *testing.T) {
	loader := &countingLoader{
		ChapterLoader: NewStaticLoader(map[int]domain.Chapter{1: sampleChapter(1)}),
	}
	repo := NewChapterRepository(loader, time.Minute)

	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if err := repo.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetChapter(context.Background(), 1); err != nil {
		t.Fatalf("get chapter after invalidate: %v", err)
	}
	if loader.chapterCalls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.chapterCalls)
	}
}

func TestBookLoadSeedsChapterCache(t *testing.T) {
	loader := &countingLoader{
		ChapterLoader: NewStaticLoader(map[int]domain.Chapter{
			1: sampleChapter(1),
			2: sampleChapter(2),
		}),
	}
	repo := NewChapterRepository(loader, time.Minute)

	book, err := repo.Book(context.Background())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if len(book) != 2 || book[0].Number != 1 || book[1].Number != 2 {
		t.Fatalf("unexpected book order: %+v", book)
	}

	if _, err := repo.GetChapter(context.Background(), 2); err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if loader.chapterCalls != 0 {
		t.Fatalf("expected chapter served from the book load, loader calls %d", loader.chapterCalls)
	}
	if loader.bookCalls != 1 {
		t.Fatalf("expected one book load, got %d", loader.bookCalls)
	}
}

func TestStaticLoaderNotFound(t *testing.T) {
	loader := NewStaticLoader(map[int]domain.Chapter{1: sampleChapter(1)})
	if _, err := loader.LoadChapter(context.Background(), 99); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
}
