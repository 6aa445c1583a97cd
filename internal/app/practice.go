package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// ErrNothingToReveal is returned when a reveal arrives before any question
// has been handed out.
var ErrNothingToReveal = errors.New("practice: no question served yet")

// SessionStore persists practice walkthroughs between websocket messages
// (in-memory, Redis).
type SessionStore interface {
	Put(ctx context.Context, session domain.PracticeSession) error
	Get(ctx context.Context, id string) (domain.PracticeSession, error)
	Delete(ctx context.Context, id string) error
}

// PracticeService walks a reader through a chapter's practice questions one
// at a time, revealing the recorded answer on demand. It never grades
// anything; the answers are prose, not an answer key to score against.
type PracticeService struct {
	book     *BookService
	sessions SessionStore
	newID    func() string
	now      func() time.Time
}

func NewPracticeService(book *BookService, sessions SessionStore) *PracticeService {
	return &PracticeService{
		book:     book,
		sessions: sessions,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Start opens a session against a chapter's quiz. Chapters without a quiz
// return domain.ErrNoQuiz.
func (s *PracticeService) Start(ctx context.Context, chapter int) (domain.PracticeSession, domain.Quiz, error) {
	quiz, err := s.book.Quiz(ctx, chapter)
	if err != nil {
		return domain.PracticeSession{}, domain.Quiz{}, err
	}

	session := domain.PracticeSession{
		ID:        s.newID(),
		Chapter:   chapter,
		StartedAt: s.now(),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return domain.PracticeSession{}, domain.Quiz{}, err
	}
	return session, quiz, nil
}

// Session resumes an existing walkthrough, for clients that reconnect.
func (s *PracticeService) Session(ctx context.Context, id string) (domain.PracticeSession, error) {
	return s.sessions.Get(ctx, id)
}

// Quiz exposes the quiz a session walks through, for transports that need
// the question count when resuming.
func (s *PracticeService) Quiz(ctx context.Context, chapter int) (domain.Quiz, error) {
	return s.book.Quiz(ctx, chapter)
}

// Next hands out the next question. done reports that every question has
// been served; the session stays alive so the reader can still reveal the
// final answer.
func (s *PracticeService) Next(ctx context.Context, id string) (session domain.PracticeSession, question string, index int, done bool, err error) {
	session, err = s.sessions.Get(ctx, id)
	if err != nil {
		return domain.PracticeSession{}, "", 0, false, err
	}

	quiz, err := s.book.Quiz(ctx, session.Chapter)
	if err != nil {
		return domain.PracticeSession{}, "", 0, false, err
	}

	if session.Cursor >= len(quiz.Questions) {
		return session, "", session.Cursor, true, nil
	}

	index = session.Cursor
	question = quiz.Questions[index]
	session.Cursor++
	if err := s.sessions.Put(ctx, session); err != nil {
		return domain.PracticeSession{}, "", 0, false, err
	}
	return session, question, index, false, nil
}

// Reveal returns the recorded answer for the most recently served question.
func (s *PracticeService) Reveal(ctx context.Context, id string) (session domain.PracticeSession, answer string, index int, err error) {
	session, err = s.sessions.Get(ctx, id)
	if err != nil {
		return domain.PracticeSession{}, "", 0, err
	}
	if session.Cursor == 0 {
		return domain.PracticeSession{}, "", 0, ErrNothingToReveal
	}

	answers, err := s.book.Answers(ctx, session.Chapter)
	if err != nil {
		return domain.PracticeSession{}, "", 0, err
	}

	index = session.Cursor - 1
	if index >= len(answers.Items) {
		return domain.PracticeSession{}, "", 0, fmt.Errorf("practice: answer %d is not recorded", index+1)
	}

	if session.Revealed < session.Cursor {
		session.Revealed = session.Cursor
		if err := s.sessions.Put(ctx, session); err != nil {
			return domain.PracticeSession{}, "", 0, err
		}
	}
	return session, answers.Items[index], index, nil
}

// End closes the session. Ending an already-gone session is not an error.
func (s *PracticeService) End(ctx context.Context, id string) error {
	err := s.sessions.Delete(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}
