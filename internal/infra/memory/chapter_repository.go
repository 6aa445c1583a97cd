package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// ChapterLoader fetches chapter content from a backing store.
type ChapterLoader interface {
	LoadChapter(ctx context.Context, number int) (domain.Chapter, error)
	LoadBook(ctx context.Context) ([]domain.Chapter, error)
}

// ChapterRepository caches chapters with TTL to avoid re-reading the backing
// store on every page view.
type ChapterRepository struct {
	loader ChapterLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu       sync.RWMutex
	chapters map[int]cachedChapter
	book     *cachedBook
}

type cachedChapter struct {
	chapter   domain.Chapter
	expiresAt time.Time
}

type cachedBook struct {
	chapters  []domain.Chapter
	expiresAt time.Time
}

func NewChapterRepository(loader ChapterLoader, ttl time.Duration) *ChapterRepository {
	return &ChapterRepository{
		loader:   loader,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		chapters: make(map[int]cachedChapter),
	}
}

func (r *ChapterRepository) GetChapter(ctx context.Context, number int) (domain.Chapter, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.chapters[number]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.chapter, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("chapter:"+strconv.Itoa(number), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.chapters[number]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.chapter, nil
		}
		r.mu.RUnlock()

		chapter, err := r.loader.LoadChapter(ctx, number)
		if err != nil {
			return domain.Chapter{}, err
		}

		r.mu.Lock()
		r.chapters[number] = cachedChapter{
			chapter:   chapter,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return chapter, nil
	})
	if err != nil {
		return domain.Chapter{}, err
	}
	return result.(domain.Chapter), nil
}

// Book returns every chapter in reading order, cached as one unit so the
// table of contents and navigation stay consistent with each other.
func (r *ChapterRepository) Book(ctx context.Context) ([]domain.Chapter, error) {
	now := r.clock()

	r.mu.RLock()
	if r.book != nil && r.book.expiresAt.After(now) {
		chapters := r.book.chapters
		r.mu.RUnlock()
		return chapters, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("book", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.book != nil && r.book.expiresAt.After(now) {
			chapters := r.book.chapters
			r.mu.RUnlock()
			return chapters, nil
		}
		r.mu.RUnlock()

		chapters, err := r.loader.LoadBook(ctx)
		if err != nil {
			return nil, err
		}
		sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })

		r.mu.Lock()
		r.book = &cachedBook{chapters: chapters, expiresAt: now.Add(r.ttlWithJitter())}
		for _, ch := range chapters {
			r.chapters[ch.Number] = cachedChapter{chapter: ch, expiresAt: now.Add(r.ttlWithJitter())}
		}
		r.mu.Unlock()
		return chapters, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Chapter), nil
}

// Invalidate drops everything; the next read goes back to the loader.
func (r *ChapterRepository) Invalidate(_ context.Context) error {
	r.mu.Lock()
	r.chapters = make(map[int]cachedChapter)
	r.book = nil
	r.mu.Unlock()
	return nil
}

func (r *ChapterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a loader backed by an in-memory map (useful for tests and
// demos).
type StaticLoader struct {
	chapters map[int]domain.Chapter
}

func NewStaticLoader(chapters map[int]domain.Chapter) *StaticLoader {
	return &StaticLoader{chapters: chapters}
}

func (l *StaticLoader) LoadChapter(_ context.Context, number int) (domain.Chapter, error) {
	if chapter, ok := l.chapters[number]; ok {
		return chapter, nil
	}
	return domain.Chapter{}, domain.ErrChapterNotFound
}

func (l *StaticLoader) LoadBook(_ context.Context) ([]domain.Chapter, error) {
	chapters := make([]domain.Chapter, 0, len(l.chapters))
	for _, chapter := range l.chapters {
		chapters = append(chapters, chapter)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	return chapters, nil
}
