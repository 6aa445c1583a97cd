// Package search maintains a SQLite FTS5 index over the book. The index is
// disposable: it is rebuilt whole from the parsed chapters on every load, so
// ":memory:" is a fine place for it.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// Index is a full-text index over chapter titles, tags and prose.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index at path. Use ":memory:" for a throwaway
// index.
func Open(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("index path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := db.Exec(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chapters_fts
		 USING fts5(title, tags, body, number UNINDEXED)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// Reindex replaces the whole index with the given chapters.
func (i *Index) Reindex(ctx context.Context, chapters []domain.Chapter) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters_fts`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, chapter := range chapters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chapters_fts (title, tags, body, number) VALUES (?, ?, ?, ?)`,
			chapter.Title,
			strings.Join(chapter.Tags, ", "),
			chapterBody(chapter),
			chapter.Number,
		); err != nil {
			return fmt.Errorf("index chapter %d: %w", chapter.Number, err)
		}
	}
	return tx.Commit()
}

// Search runs a full-text query and returns the best chapters first. The
// query is reduced to plain quoted tokens, so readers can paste EdgeQL
// straight in without tripping over FTS5 operators.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	match := sanitize(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT number, title, snippet(chapters_fts, 2, '<mark>', '</mark>', '…', 12)
		 FROM chapters_fts WHERE chapters_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Chapter, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// sanitize turns free text into an FTS5 query of ANDed quoted tokens.
func sanitize(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_')
	})
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}

func chapterBody(chapter domain.Chapter) string {
	var b strings.Builder
	for _, block := range chapter.Blocks {
		b.WriteString(block.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
