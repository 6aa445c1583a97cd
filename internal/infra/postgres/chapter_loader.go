// Package postgres stores the parsed book as JSONB rows, one per chapter.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// ChapterLoader loads chapter JSONB from Postgres.
type ChapterLoader struct {
	pool *pgxpool.Pool
}

func NewChapterLoader(pool *pgxpool.Pool) *ChapterLoader {
	return &ChapterLoader{pool: pool}
}

func (l *ChapterLoader) LoadChapter(ctx context.Context, number int) (domain.Chapter, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM chapters WHERE number=$1`, number).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, domain.ErrChapterNotFound
		}
		return domain.Chapter{}, fmt.Errorf("load chapter: %w", err)
	}
	var chapter domain.Chapter
	if err := json.Unmarshal(raw, &chapter); err != nil {
		return domain.Chapter{}, fmt.Errorf("unmarshal chapter: %w", err)
	}
	return chapter, nil
}

func (l *ChapterLoader) LoadBook(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM chapters ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		var chapter domain.Chapter
		if err := json.Unmarshal(raw, &chapter); err != nil {
			return nil, fmt.Errorf("unmarshal chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

// SaveBook upserts every chapter and removes rows for chapters that no
// longer exist, so the table always mirrors one parse of the content tree.
func (l *ChapterLoader) SaveBook(ctx context.Context, chapters []domain.Chapter) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	numbers := make([]int32, 0, len(chapters))
	for _, chapter := range chapters {
		data, err := json.Marshal(chapter)
		if err != nil {
			return fmt.Errorf("marshal chapter %d: %w", chapter.Number, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO chapters (number, data) VALUES ($1, $2)
			 ON CONFLICT (number) DO UPDATE SET data = EXCLUDED.data`,
			chapter.Number, data,
		); err != nil {
			return fmt.Errorf("upsert chapter %d: %w", chapter.Number, err)
		}
		numbers = append(numbers, int32(chapter.Number))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chapters WHERE NOT (number = ANY($1))`, numbers); err != nil {
		return fmt.Errorf("prune chapters: %w", err)
	}
	return tx.Commit(ctx)
}
