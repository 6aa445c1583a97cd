// Package http serves the book: HTML pages for readers, JSON under /api
// for tooling, and websockets for practice sessions and live reload.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
	"github.com/zPat/easy-edgedb/internal/render"
)

// Handler carries what every route shares. The reload hub is optional;
// when present the rendered pages also embed the livereload script.
type Handler struct {
	book     *app.BookService
	html     *render.HTML
	practice *PracticeHandler
	reload   *ReloadHub
	log      *zap.Logger
}

func NewHandler(book *app.BookService, practice *app.PracticeService, html *render.HTML, reload *ReloadHub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{book: book, html: html, reload: reload, log: log}
	if practice != nil {
		h.practice = NewPracticeHandler(practice, log)
	}
	return h
}

// Routes builds the mux. Path parameters use the 1.22 pattern syntax.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleTOC)
	mux.HandleFunc("GET /chapter/{number}", h.handleChapter)
	mux.HandleFunc("GET /chapter/{number}/answers", h.handleAnswers)
	mux.HandleFunc("GET /chapter/{number}/code", h.handleCode)
	mux.HandleFunc("GET /search", h.handleSearch)

	mux.HandleFunc("GET /api/chapters", h.apiChapters)
	mux.HandleFunc("GET /api/chapter/{number}", h.apiChapter)
	mux.HandleFunc("GET /api/chapter/{number}/quiz", h.apiQuiz)
	mux.HandleFunc("GET /api/search", h.apiSearch)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	if h.practice != nil {
		mux.HandleFunc("/ws/practice", h.practice.ServeWS)
	}
	if h.reload != nil {
		mux.HandleFunc("/ws/reload", h.reload.ServeWS)
	}
	return mux
}

func (h *Handler) watchMode() bool { return h.reload != nil }

func (h *Handler) handleTOC(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.book.Summaries(r.Context())
	if err != nil {
		h.errorPage(w, err)
		return
	}
	view := render.TOCView{
		Page:     render.Page{Title: "Easy EdgeDB", WatchMode: h.watchMode()},
		Chapters: summaries,
	}
	if err := h.html.TOC(w, view); err != nil {
		h.log.Error("render toc", zap.Error(err))
	}
}

func (h *Handler) handleChapter(w http.ResponseWriter, r *http.Request) {
	number, ok := h.chapterNumber(w, r)
	if !ok {
		return
	}
	ch, nav, err := h.book.GetChapter(r.Context(), number)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	blocks, err := h.html.Blocks(ch.Blocks)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	view := render.ChapterView{
		Page:         render.Page{Title: ch.Title, WatchMode: h.watchMode()},
		Number:       ch.Number,
		ChapterTitle: ch.Title,
		Tags:         ch.Tags,
		Blocks:       blocks,
		Nav:          nav,
		HasQuiz:      ch.HasQuiz(),
		HasAnswers:   ch.Answers != nil,
		HasCode:      ch.CodeSoFar != nil,
	}
	if ch.HasQuiz() {
		view.QuestionCount = len(ch.Quiz.Questions)
	}
	if err := h.html.Chapter(w, view); err != nil {
		h.log.Error("render chapter", zap.Int("chapter", number), zap.Error(err))
	}
}

func (h *Handler) handleAnswers(w http.ResponseWriter, r *http.Request) {
	number, ok := h.chapterNumber(w, r)
	if !ok {
		return
	}
	answers, err := h.book.Answers(r.Context(), number)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	h.companion(w, number, "Answers", answers.Blocks)
}

func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request) {
	number, ok := h.chapterNumber(w, r)
	if !ok {
		return
	}
	code, err := h.book.CodeSoFar(r.Context(), number)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	h.companion(w, number, "Code up to this point", code.Blocks)
}

func (h *Handler) companion(w http.ResponseWriter, number int, heading string, blocks []domain.Block) {
	views, err := h.html.Blocks(blocks)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	view := render.CompanionView{
		Page:    render.Page{Title: heading, WatchMode: h.watchMode()},
		Number:  number,
		Heading: heading,
		Blocks:  views,
	}
	if err := h.html.Companion(w, view); err != nil {
		h.log.Error("render companion", zap.Int("chapter", number), zap.Error(err))
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.book.Search(r.Context(), query, 20)
	if err != nil {
		h.errorPage(w, err)
		return
	}
	view := render.SearchView{
		Page:  render.Page{Title: "Search", WatchMode: h.watchMode()},
		Query: query,
	}
	for _, res := range results {
		view.Results = append(view.Results, render.SearchHit{
			Chapter: res.Chapter,
			Title:   res.Title,
			Snippet: render.Snippet(res.Snippet),
		})
	}
	if err := h.html.Search(w, view); err != nil {
		h.log.Error("render search", zap.Error(err))
	}
}

func (h *Handler) apiChapters(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.book.Summaries(r.Context())
	if err != nil {
		h.errorJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) apiChapter(w http.ResponseWriter, r *http.Request) {
	number, ok := h.apiChapterNumber(w, r)
	if !ok {
		return
	}
	ch, _, err := h.book.GetChapter(r.Context(), number)
	if err != nil {
		h.errorJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) apiQuiz(w http.ResponseWriter, r *http.Request) {
	number, ok := h.apiChapterNumber(w, r)
	if !ok {
		return
	}
	quiz, err := h.book.Quiz(r.Context(), number)
	if err != nil {
		h.errorJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) apiSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.book.Search(r.Context(), query, 20)
	if err != nil {
		h.errorJSON(w, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// chapterNumber reads the {number} path segment for HTML routes; a bad
// value gets the 404 page directly.
func (h *Handler) chapterNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		h.renderError(w, http.StatusNotFound, "no such chapter")
		return 0, false
	}
	return number, true
}

func (h *Handler) apiChapterNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no such chapter"})
		return 0, false
	}
	return number, true
}

// errorPage maps domain errors onto the HTML error template.
func (h *Handler) errorPage(w http.ResponseWriter, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	h.renderError(w, status, msg)
}

func (h *Handler) renderError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	view := render.ErrorView{
		Page:    render.Page{Title: msg, WatchMode: h.watchMode()},
		Status:  status,
		Message: msg,
	}
	if err := h.html.Error(w, view); err != nil {
		h.log.Error("render error page", zap.Error(err))
	}
}

func (h *Handler) errorJSON(w http.ResponseWriter, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

type errorBody struct {
	Error string `json:"error"`
}

// errorStatus keeps the outward message terse; parse errors and other
// internals land in the log, not the response.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrChapterNotFound):
		return http.StatusNotFound, "no such chapter"
	case errors.Is(err, domain.ErrNoQuiz):
		return http.StatusNotFound, "chapter has no practice section"
	case errors.Is(err, domain.ErrAnswersNotFound):
		return http.StatusNotFound, "chapter has no answers"
	case errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, "chapter has no code listing"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "no such practice session"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
