package api

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/index"
	"github.com/dgallion1/ultratext/internal/search"
	"github.com/dgallion1/ultratext/internal/session"
)

const maxCommandBody = 1 << 20

type sessionResponse struct {
	ID        string            `json:"session_id"`
	Session   session.Session   `json:"session"`
	Title     string            `json:"title"`
	Status    string            `json:"status"`
	Selection doctree.Selection `json:"selection"`
	Stats     index.Stats       `json:"stats"`
	Text      string            `json:"text"`
}

func describe(e *sessionEntry) sessionResponse {
	sess := e.editor.Session()
	return sessionResponse{
		ID:        e.id,
		Session:   sess,
		Title:     sess.Title(),
		Status:    sess.Status(),
		Selection: e.editor.Document().Selection(),
		Stats:     e.editor.Stats(),
		Text:      doctree.Text(e.editor.Document().Root()),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e := s.sessions.Create(s.log)
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusCreated, describe(e))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, describe(e))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "sessionID")) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type openRequest struct {
	Path    string `json:"path"`
	Discard bool   `json:"discard"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("open").Since(time.Now())

	e.bind(s.fs, req.Path, req.Discard)
	opened, err := e.editor.Open(r.Context())
	if err != nil {
		s.fileError(w, err)
		return
	}
	if !opened {
		jsonError(w, "document has unsaved changes; retry with discard", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, describe(e))
}

type saveRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, false)
}

func (s *Server) handleSaveAs(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, true)
}

// save writes the document. Save falls back to the bound path, then to the
// untitled default; save-as needs an explicit path.
func (s *Server) save(w http.ResponseWriter, r *http.Request, as bool) {
	var req saveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if as && req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("save").Since(time.Now())

	e.bind(s.fs, req.Path, false)
	var err error
	if as {
		_, err = e.editor.SaveAs(r.Context())
	} else {
		_, err = e.editor.Save(r.Context())
	}
	if err != nil {
		s.fileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(e))
}

type findRequest struct {
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive"`
	Cursor        *int   `json:"cursor,omitempty"`
	Backward      bool   `json:"backward"`
}

type findResponse struct {
	Found bool          `json:"found"`
	Match *search.Match `json:"match,omitempty"`
	Count int           `json:"count"`
	State search.State  `json:"state"`
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("find").Since(time.Now())

	doc := e.editor.Document()
	if req.Cursor != nil {
		doc.SetSelection(doctree.Selection{From: *req.Cursor, To: *req.Cursor})
	}
	var (
		m     search.Match
		found bool
	)
	if req.Backward {
		m, found = e.editor.FindPrev(req.Query)
	} else {
		m, found = e.editor.Find(req.Query)
	}
	sel := doc.Selection()
	resp := findResponse{
		Found: found,
		Count: e.editor.Count(req.Query),
		State: search.State{Query: req.Query, CaseSensitive: req.CaseSensitive}.After(search.Match{From: sel.From, To: sel.To}, req.Backward),
	}
	if found {
		resp.Match = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

type replaceRequest struct {
	Query       string             `json:"query"`
	Replacement string             `json:"replacement"`
	Selection   *doctree.Selection `json:"selection,omitempty"`
}

type replaceResponse struct {
	Found   bool            `json:"found"`
	Next    *search.Match   `json:"next,omitempty"`
	Count   int             `json:"count"`
	Session sessionResponse `json:"session"`
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("replace").Since(time.Now())

	if req.Selection != nil {
		e.editor.Document().SetSelection(*req.Selection)
	}
	next, found, err := e.editor.Replace(req.Query, req.Replacement)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := replaceResponse{Found: found, Session: describe(e)}
	if found {
		resp.Next = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReplaceAll(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("replace_all").Since(time.Now())

	n, err := e.editor.ReplaceAll(req.Query, req.Replacement)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, replaceResponse{Count: n, Session: describe(e)})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, (*session.Editor).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, (*session.Editor).Redo)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, step func(*session.Editor) error) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()

	if err := step(e.editor); err != nil {
		if errors.Is(err, doctree.ErrNothingToUndo) || errors.Is(err, doctree.ErrNothingToRedo) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, describe(e))
}

var contentTypes = map[convert.Format]string{
	convert.FormatJSON:      "application/json",
	convert.FormatMarkdown:  "text/markdown; charset=utf-8",
	convert.FormatPlainText: "text/plain; charset=utf-8",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := convert.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := convert.ParseFormat(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	defer s.stats.Op("export").Since(time.Now())

	data, err := e.editor.Export(format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Write(data)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	outline := e.editor.Outline()
	if outline == nil {
		outline = []index.Section{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": outline})
}

// lookup finds the session named in the URL and locks it. On success the
// caller must unlock e.mu.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	e := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if e == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	e.mu.Lock()
	return e, true
}

// fileError maps open and save failures to status codes.
func (s *Server) fileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, convert.ErrParse):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, fs.ErrNotExist):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrIO):
		s.log.Error("file operation failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeBody reads an optional JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
