package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
	"github.com/zPat/easy-edgedb/internal/infra/memory"
)

func newTestPractice() *app.PracticeService {
	repo := memory.NewChapterRepository(memory.NewStaticLoader(testBook()), time.Minute)
	book := app.NewBookService(repo, nil, nil)
	return app.NewPracticeService(book, memory.NewSessionStore())
}

func TestPracticeWalkthrough(t *testing.T) {
	ctx := context.Background()
	practice := newTestPractice()

	session, quiz, err := practice.Start(ctx, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session id")
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}

	_, question, index, done, err := practice.Next(ctx, session.ID)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if done || index != 0 {
		t.Fatalf("expected first question, got index %d done %v", index, done)
	}
	if question != quiz.Questions[0] {
		t.Fatalf("unexpected question %q", question)
	}

	_, answer, index, err := practice.Reveal(ctx, session.ID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if index != 0 || answer != "With a plain INSERT statement." {
		t.Fatalf("unexpected answer %d %q", index, answer)
	}

	if _, _, index, done, err = practice.Next(ctx, session.ID); err != nil || done || index != 1 {
		t.Fatalf("expected second question, got index %d done %v err %v", index, done, err)
	}
	if _, _, _, done, err = practice.Next(ctx, session.ID); err != nil || !done {
		t.Fatalf("expected done, got done %v err %v", done, err)
	}

	// the final answer stays available after done
	if _, answer, _, err = practice.Reveal(ctx, session.ID); err != nil || answer != "With FILTER .population > n." {
		t.Fatalf("reveal after done: %q %v", answer, err)
	}
}

func TestPracticeRevealBeforeQuestion(t *testing.T) {
	ctx := context.Background()
	practice := newTestPractice()

	session, _, err := practice.Start(ctx, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, _, err := practice.Reveal(ctx, session.ID); !errors.Is(err, app.ErrNothingToReveal) {
		t.Fatalf("expected ErrNothingToReveal, got %v", err)
	}
}

func TestPracticeChapterWithoutQuiz(t *testing.T) {
	practice := newTestPractice()
	if _, _, err := practice.Start(context.Background(), 2); !errors.Is(err, domain.ErrNoQuiz) {
		t.Fatalf("expected ErrNoQuiz, got %v", err)
	}
}

func TestPracticeRevealWithoutAnswers(t *testing.T) {
	ctx := context.Background()
	practice := newTestPractice()

	// chapter 3 has a quiz but no answers document
	session, _, err := practice.Start(ctx, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, _, _, err := practice.Next(ctx, session.ID); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, _, _, err := practice.Reveal(ctx, session.ID); !errors.Is(err, domain.ErrAnswersNotFound) {
		t.Fatalf("expected ErrAnswersNotFound, got %v", err)
	}
}

func TestPracticeEnd(t *testing.T) {
	ctx := context.Background()
	practice := newTestPractice()

	session, _, err := practice.Start(ctx, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := practice.End(ctx, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, _, _, _, err := practice.Next(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	// ending twice is fine
	if err := practice.End(ctx, session.ID); err != nil {
		t.Fatalf("second end: %v", err)
	}
}
