package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
)

// PracticeHandler walks a websocket client through a chapter's practice
// questions one message at a time.
type PracticeHandler struct {
	service  *app.PracticeService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewPracticeHandler(service *app.PracticeService, log *zap.Logger) *PracticeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PracticeHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
	Chapter   int    `json:"chapter"`
	Questions int    `json:"questions"`
	Cursor    int    `json:"cursor"`
}

type questionPayload struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Question string `json:"question"`
}

type answerPayload struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// ServeWS upgrades the request and runs the walkthrough. ?chapter=N starts
// a fresh session; ?session=ID resumes a stored one.
func (h *PracticeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chapter := r.URL.Query().Get("chapter")
	sessionID := r.URL.Query().Get("session")
	if chapter == "" && sessionID == "" {
		http.Error(w, "missing chapter or session", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()

	var (
		session domain.PracticeSession
		quiz    domain.Quiz
	)
	if sessionID != "" {
		session, err = h.service.Session(ctx, sessionID)
		if err == nil {
			quiz, err = h.service.Quiz(ctx, session.Chapter)
		}
	} else {
		var number int
		number, err = parseChapterParam(chapter)
		if err == nil {
			session, quiz, err = h.service.Start(ctx, number)
		}
	}
	if err != nil {
		_, msg := errorStatus(err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: msg}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// One writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		SessionID: session.ID,
		Chapter:   session.Chapter,
		Questions: len(quiz.Questions),
		Cursor:    session.Cursor,
	}}

	total := len(quiz.Questions)

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "next":
			_, question, index, done, err := h.service.Next(ctx, session.ID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if done {
				send <- outboundMessage[any]{Type: "done", Payload: sessionPayload{
					SessionID: session.ID,
					Chapter:   session.Chapter,
					Questions: total,
					Cursor:    total,
				}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: questionPayload{
				Index:    index,
				Total:    total,
				Question: question,
			}}
		case "reveal":
			_, answer, index, err := h.service.Reveal(ctx, session.ID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answer", Payload: answerPayload{
				Index:  index,
				Answer: answer,
			}}
		case "quit":
			if err := h.service.End(ctx, session.ID); err != nil {
				h.log.Warn("end practice session", zap.String("session", session.ID), zap.Error(err))
			}
			break readLoop
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func parseChapterParam(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.ErrChapterNotFound
	}
	return n, nil
}
