// Package redis caches chapters and practice sessions in Redis so several
// instances can serve the same book without re-parsing it.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// ChapterLoader fetches chapter content from a backing store.
type ChapterLoader interface {
	LoadChapter(ctx context.Context, number int) (domain.Chapter, error)
	LoadBook(ctx context.Context) ([]domain.Chapter, error)
}

// ChapterRepository caches chapters as JSON values (chapter:{n}) plus the
// reading order (chapters:index) and falls back to a loader on cache miss.
type ChapterRepository struct {
	client *redis.Client
	loader ChapterLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewChapterRepository(client *redis.Client, loader ChapterLoader, ttl time.Duration) *ChapterRepository {
	return &ChapterRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChapterRepository) GetChapter(ctx context.Context, number int) (domain.Chapter, error) {
	if chapter, ok := r.cachedChapter(ctx, number); ok {
		return chapter, nil
	}

	result, err, _ := r.sf.Do("chapter:"+strconv.Itoa(number), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if chapter, ok := r.cachedChapter(ctx, number); ok {
			return chapter, nil
		}

		chapter, err := r.loader.LoadChapter(ctx, number)
		if err != nil {
			return domain.Chapter{}, err
		}
		r.storeChapter(ctx, chapter, r.ttlWithJitter())
		return chapter, nil
	})
	if err != nil {
		return domain.Chapter{}, err
	}
	return result.(domain.Chapter), nil
}

func (r *ChapterRepository) Book(ctx context.Context) ([]domain.Chapter, error) {
	if chapters, ok := r.cachedBook(ctx); ok {
		return chapters, nil
	}

	result, err, _ := r.sf.Do("book", func() (interface{}, error) {
		if chapters, ok := r.cachedBook(ctx); ok {
			return chapters, nil
		}

		chapters, err := r.loader.LoadBook(ctx)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		numbers := make([]int, 0, len(chapters))
		pipe := r.client.Pipeline()
		for _, chapter := range chapters {
			numbers = append(numbers, chapter.Number)
			if data, err := json.Marshal(chapter); err == nil {
				pipe.Set(ctx, chapterKey(chapter.Number), data, ttl)
			}
		}
		if data, err := json.Marshal(numbers); err == nil {
			pipe.Set(ctx, indexKey, data, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return chapters, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Chapter), nil
}

// Invalidate drops the index and every chapter it names. Best effort; keys
// expire on their own anyway.
func (r *ChapterRepository) Invalidate(ctx context.Context) error {
	data, err := r.client.Get(ctx, indexKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	var numbers []int
	keys := []string{indexKey}
	if err := json.Unmarshal(data, &numbers); err == nil {
		for _, n := range numbers {
			keys = append(keys, chapterKey(n))
		}
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *ChapterRepository) cachedChapter(ctx context.Context, number int) (domain.Chapter, bool) {
	data, err := r.client.Get(ctx, chapterKey(number)).Bytes()
	if err != nil {
		return domain.Chapter{}, false
	}
	var chapter domain.Chapter
	if err := json.Unmarshal(data, &chapter); err != nil {
		return domain.Chapter{}, false
	}
	return chapter, true
}

func (r *ChapterRepository) cachedBook(ctx context.Context) ([]domain.Chapter, bool) {
	data, err := r.client.Get(ctx, indexKey).Bytes()
	if err != nil {
		return nil, false
	}
	var numbers []int
	if err := json.Unmarshal(data, &numbers); err != nil || len(numbers) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(numbers))
	for _, n := range numbers {
		keys = append(keys, chapterKey(n))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false
	}

	chapters := make([]domain.Chapter, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			return nil, false // a chapter expired out from under the index
		}
		var chapter domain.Chapter
		if err := json.Unmarshal([]byte(raw), &chapter); err != nil {
			return nil, false
		}
		chapters = append(chapters, chapter)
	}
	return chapters, true
}

func (r *ChapterRepository) storeChapter(ctx context.Context, chapter domain.Chapter, ttl time.Duration) {
	data, err := json.Marshal(chapter)
	if err != nil {
		return
	}
	// best effort: a failed write just means another cache miss later
	_ = r.client.Set(ctx, chapterKey(chapter.Number), data, ttl).Err()
}

const indexKey = "chapters:index"

func chapterKey(number int) string {
	return "chapter:" + strconv.Itoa(number)
}

func (r *ChapterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
