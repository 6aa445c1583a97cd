// Package app contains the book use cases and the ports its infrastructure
// implements.
package app

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// ChapterLoader fetches chapters from a backing source (filesystem, Postgres,
// a static map in tests).
type ChapterLoader interface {
	LoadChapter(ctx context.Context, number int) (domain.Chapter, error)
	LoadBook(ctx context.Context) ([]domain.Chapter, error)
}

// ChapterRepository serves chapter content, usually caching in front of a
// ChapterLoader. Invalidate drops whatever is cached so the next read sees
// fresh content.
type ChapterRepository interface {
	GetChapter(ctx context.Context, number int) (domain.Chapter, error)
	Book(ctx context.Context) ([]domain.Chapter, error)
	Invalidate(ctx context.Context) error
}

// Searcher maintains a full-text index over the book.
type Searcher interface {
	Reindex(ctx context.Context, chapters []domain.Chapter) error
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// BookService contains the reading use cases: table of contents, chapter
// pages, companion documents, search and reloads. It keeps a small index of
// the current book (order, titles, summaries) behind an RWMutex so reads
// never wait on anything slower than the swap.
type BookService struct {
	chapters ChapterRepository
	searcher Searcher
	log      *zap.Logger

	mu        sync.RWMutex
	order     []int
	summaries []domain.ChapterSummary
}

// NewBookService wires the service. searcher may be nil for one-shot commands
// that never search.
func NewBookService(chapters ChapterRepository, searcher Searcher, log *zap.Logger) *BookService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookService{chapters: chapters, searcher: searcher, log: log}
}

// Load builds the book index and, when a searcher is wired, the search index.
// Call it once at startup; Reload repeats it after content changes.
func (s *BookService) Load(ctx context.Context) error {
	chapters, err := s.chapters.Book(ctx)
	if err != nil {
		return err
	}

	order := make([]int, 0, len(chapters))
	summaries := make([]domain.ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		order = append(order, ch.Number)
		summaries = append(summaries, summarize(ch))
	}
	sort.Ints(order)
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Number < summaries[j].Number })

	s.mu.Lock()
	s.order = order
	s.summaries = summaries
	s.mu.Unlock()

	if s.searcher != nil {
		if err := s.searcher.Reindex(ctx, chapters); err != nil {
			return err
		}
	}

	s.log.Info("book loaded", zap.Int("chapters", len(chapters)))
	return nil
}

// Reload invalidates the chapter cache and rebuilds the indexes. Readers keep
// seeing the old book until the swap.
func (s *BookService) Reload(ctx context.Context) error {
	if err := s.chapters.Invalidate(ctx); err != nil {
		return err
	}
	return s.Load(ctx)
}

// GetChapter returns one chapter along with its position in the reading
// order. Navigation comes from list adjacency, not arithmetic, so a book
// with a gap still links its real neighbours.
func (s *BookService) GetChapter(ctx context.Context, number int) (domain.Chapter, domain.Navigation, error) {
	ch, err := s.chapters.GetChapter(ctx, number)
	if err != nil {
		return domain.Chapter{}, domain.Navigation{}, err
	}
	if err := s.ensureIndex(ctx); err != nil {
		return domain.Chapter{}, domain.Navigation{}, err
	}
	return ch, s.navigation(number), nil
}

// Book returns every chapter in reading order.
func (s *BookService) Book(ctx context.Context) ([]domain.Chapter, error) {
	chapters, err := s.chapters.Book(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	return chapters, nil
}

// Summaries returns the table of contents for the currently loaded book.
func (s *BookService) Summaries(ctx context.Context) ([]domain.ChapterSummary, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChapterSummary, len(s.summaries))
	copy(out, s.summaries)
	return out, nil
}

// Quiz returns the practice section of a chapter, or ErrNoQuiz.
func (s *BookService) Quiz(ctx context.Context, number int) (domain.Quiz, error) {
	ch, err := s.chapters.GetChapter(ctx, number)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !ch.HasQuiz() {
		return domain.Quiz{}, domain.ErrNoQuiz
	}
	return *ch.Quiz, nil
}

// Answers returns a chapter's answer document, or ErrAnswersNotFound.
func (s *BookService) Answers(ctx context.Context, number int) (domain.Answers, error) {
	ch, err := s.chapters.GetChapter(ctx, number)
	if err != nil {
		return domain.Answers{}, err
	}
	if ch.Answers == nil {
		return domain.Answers{}, domain.ErrAnswersNotFound
	}
	return *ch.Answers, nil
}

// CodeSoFar returns a chapter's cumulative schema listing, or ErrCodeNotFound.
func (s *BookService) CodeSoFar(ctx context.Context, number int) (domain.CodeSoFar, error) {
	ch, err := s.chapters.GetChapter(ctx, number)
	if err != nil {
		return domain.CodeSoFar{}, err
	}
	if ch.CodeSoFar == nil {
		return domain.CodeSoFar{}, domain.ErrCodeNotFound
	}
	return *ch.CodeSoFar, nil
}

// Search queries the full-text index. Without a searcher it returns nothing.
func (s *BookService) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if s.searcher == nil {
		return nil, nil
	}
	return s.searcher.Search(ctx, query, limit)
}

func (s *BookService) ensureIndex(ctx context.Context) error {
	s.mu.RLock()
	n := len(s.order)
	s.mu.RUnlock()
	if n > 0 {
		return nil
	}
	return s.Load(ctx)
}

func (s *BookService) navigation(number int) domain.Navigation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nav domain.Navigation
	for i, n := range s.order {
		if n != number {
			continue
		}
		if i > 0 {
			nav.Prev = s.ref(s.order[i-1])
		}
		if i < len(s.order)-1 {
			nav.Next = s.ref(s.order[i+1])
		}
		break
	}
	return nav
}

// ref assumes s.mu is held.
func (s *BookService) ref(number int) *domain.ChapterRef {
	for _, sum := range s.summaries {
		if sum.Number == number {
			return &domain.ChapterRef{Number: sum.Number, Title: sum.Title}
		}
	}
	return &domain.ChapterRef{Number: number}
}

func summarize(ch domain.Chapter) domain.ChapterSummary {
	sum := domain.ChapterSummary{
		Number:  ch.Number,
		Title:   ch.Title,
		Tags:    ch.Tags,
		HasQuiz: ch.HasQuiz(),
	}
	if ch.HasQuiz() {
		sum.QuestionCount = len(ch.Quiz.Questions)
	}
	return sum
}
