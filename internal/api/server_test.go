package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/ultratext/internal/config"
	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/pipeline"
	"github.com/dgallion1/ultratext/internal/search"
)

const sampleJSON = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"ab ab"}]}]}`

func newTestServer(t *testing.T, cfg config.Config) (*Server, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg.WorkerCount = 1
	srv := NewServer(cfg, fs, slog.New(slog.DiscardHandler))
	srv.Start(context.Background())
	t.Cleanup(srv.Stop)
	return srv, fs
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[sessionResponse](t, rec).ID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())
	rec := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "secret"
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", nil).Code)
}

func TestEditingFlow(t *testing.T) {
	srv, fs := newTestServer(t, config.Default())
	id := createSession(t, srv)
	base := "/api/sessions/" + id

	rec := do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "docs/a.json"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, afero.WriteFile(fs, "docs/a.json", []byte(sampleJSON), 0o644))
	rec = do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "docs/a.json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decode[sessionResponse](t, rec)
	assert.Equal(t, "ab ab", opened.Text)
	assert.Equal(t, "UltraText - docs/a.json", opened.Title)
	assert.Equal(t, "File: docs/a.json  Format: JSON", opened.Status)

	rec = do(t, srv, http.MethodPost, base+"/find", findRequest{Query: "B"})
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[findResponse](t, rec)
	require.True(t, found.Found)
	assert.Equal(t, 2, found.Match.From)
	assert.Equal(t, 3, found.Match.To)
	assert.Equal(t, 2, found.Count)
	assert.Equal(t, search.State{Query: "B", Cursor: 3}, found.State)

	cursor := 6
	rec = do(t, srv, http.MethodPost, base+"/find", findRequest{Query: "b", CaseSensitive: true, Cursor: &cursor, Backward: true})
	found = decode[findResponse](t, rec)
	require.True(t, found.Found)
	assert.Equal(t, 5, found.Match.From)
	assert.Equal(t, search.State{Query: "b", CaseSensitive: true, Cursor: 5}, found.State)

	rec = do(t, srv, http.MethodPost, base+"/replace-all", replaceRequest{Query: "ab", Replacement: "cd"})
	require.Equal(t, http.StatusOK, rec.Code)
	replaced := decode[replaceResponse](t, rec)
	assert.Equal(t, 2, replaced.Count)
	assert.Equal(t, "cd cd", replaced.Session.Text)
	assert.True(t, replaced.Session.Session.Dirty)

	rec = do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "docs/a.json"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[sessionResponse](t, rec).Session.Dirty)

	data, err := afero.ReadFile(fs, "docs/a.json")
	require.NoError(t, err)
	root, err := convert.Deserialize(data, convert.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "cd cd", doctree.Text(root))

	rec = do(t, srv, http.MethodGet, base+"/export?format=md", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cd cd", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	rec = do(t, srv, http.MethodGet, base+"/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/undo", nil).Code)
	rec = do(t, srv, http.MethodPost, base+"/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ab ab", decode[sessionResponse](t, rec).Text)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, base+"/undo", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/redo", nil).Code)

	rec = do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "docs/a.json", Discard: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cd cd", decode[sessionResponse](t, rec).Text)
}

func TestReplace(t *testing.T) {
	srv, fs := newTestServer(t, config.Default())
	require.NoError(t, afero.WriteFile(fs, "a.json", []byte(sampleJSON), 0o644))
	id := createSession(t, srv)
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "a.json"}).Code)

	rec := do(t, srv, http.MethodPost, base+"/replace", replaceRequest{Query: "ab", Replacement: "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[replaceResponse](t, rec)
	assert.Equal(t, "x ab", resp.Session.Text)
	require.True(t, resp.Found)
	assert.Equal(t, 3, resp.Next.From)

	rec = do(t, srv, http.MethodPost, base+"/replace", replaceRequest{
		Query:       "ab",
		Replacement: "y",
		Selection:   &doctree.Selection{From: 3, To: 5},
	})
	resp = decode[replaceResponse](t, rec)
	assert.Equal(t, "x y", resp.Session.Text)
	assert.False(t, resp.Found)
}

func TestOpenErrors(t *testing.T) {
	srv, fs := newTestServer(t, config.Default())
	require.NoError(t, afero.WriteFile(fs, "bad.json", []byte(`{"type":`), 0o644))
	id := createSession(t, srv)
	base := "/api/sessions/" + id

	rec := do(t, srv, http.MethodPost, base+"/open", openRequest{Path: "bad.json"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/open", openRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/save-as", saveRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/find", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveUntitled(t *testing.T) {
	srv, fs := newTestServer(t, config.Default())
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "untitled.json", decode[sessionResponse](t, rec).Session.Path)

	exists, err := afero.Exists(fs, "untitled.json")
	require.NoError(t, err)
	assert.True(t, exists)

	rec = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/save-as", saveRequest{Path: "out/copy.json"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out/copy.json", decode[sessionResponse](t, rec).Session.Path)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sessionResponse](t, rec)
	assert.Equal(t, "UltraText", got.Title)
	assert.Empty(t, got.Status)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/outline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sections":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/sessions/"+id, nil).Code)
}

func upload(t *testing.T, srv http.Handler, path, filename, content string, discard bool) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if discard {
		require.NoError(t, mw.WriteField("discard", "true"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestImport(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())
	id := createSession(t, srv)
	base := "/api/sessions/" + id

	rec := upload(t, srv, base+"/import", "fruit.csv", "name,qty\napple,3\n", false)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode[map[string]any](t, rec)
	pollURL, _ := accepted["poll_url"].(string)
	require.NotEmpty(t, pollURL)

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := do(t, srv, http.MethodGet, pollURL, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		snap = decode[pipeline.JobSnapshot](t, rec)
		return snap.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, pipeline.StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Equal(t, id, snap.SessionID)

	rec = do(t, srv, http.MethodGet, base, nil)
	got := decode[sessionResponse](t, rec)
	assert.Contains(t, got.Text, "apple")
	assert.True(t, got.Session.Dirty)
	assert.False(t, got.Session.Bound())

	rec = upload(t, srv, base+"/import", "more.csv", "a,b\n", false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = upload(t, srv, base+"/import", "tool.exe", "MZ", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/jobs/nope", nil).Code)
}

func TestImport_TooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxUploadBytes = 8
	srv, _ := newTestServer(t, cfg)
	id := createSession(t, srv)

	rec := upload(t, srv, "/api/sessions/"+id+"/import", "big.txt", "this is more than eight bytes", false)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStats(t *testing.T) {
	srv, fs := newTestServer(t, config.Default())
	require.NoError(t, afero.WriteFile(fs, "a.json", []byte(sampleJSON), 0o644))
	id := createSession(t, srv)
	do(t, srv, http.MethodPost, "/api/sessions/"+id+"/open", openRequest{Path: "a.json"})
	do(t, srv, http.MethodPost, "/api/sessions/"+id+"/find", findRequest{Query: "ab"})

	rec := do(t, srv, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions int                       `json:"sessions"`
		Latency  map[string]map[string]any `json:"latency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Sessions)
	assert.Contains(t, body.Latency, "open")
	assert.Contains(t, body.Latency, "find")
}

func TestSessionStore_Cleanup(t *testing.T) {
	store := NewSessionStore(20 * time.Millisecond)
	old := store.Create(slog.New(slog.DiscardHandler))
	time.Sleep(40 * time.Millisecond)
	fresh := store.Create(slog.New(slog.DiscardHandler))

	assert.Equal(t, 1, store.Cleanup())
	assert.Nil(t, store.Get(old.id))
	assert.NotNil(t, store.Get(fresh.id))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.docx":         "report.docx",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a.md`:    "a.md",
		"dir/..":              "_",
		"":                    "unnamed",
		"notes..backup.txt":   "notes_backup.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
