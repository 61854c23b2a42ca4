package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docanchor/internal/config"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/pathstore/pathstoretest"
	"github.com/dgallion1/docanchor/internal/pipeline"
)

const (
	testKey  = "secret"
	testHTML = `<html><head><title>Chapter</title></head>
<body id="body01"><p id="para01">Hello world</p><p id="para02">Alpha beta gamma</p></body></html>`
	betaCFI = "epubcfi(/6/4[chap01ref]!/4[body01]/4[para02],/1:6,/1:10)"
)

type testEnv struct {
	srv *Server
	ps  *pathstoretest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ps := pathstoretest.New()
	t.Cleanup(ps.Close)

	cfg := config.Config{
		APIKey:             testKey,
		WorkerCount:        1,
		MaxQueueSize:       10,
		MaxConcurrentStore: 2,
		MaxUploadBytes:     1 << 20,
		LocationChars:      20,
		IgnoreClass:        "docanchor-hl",
		JobTTL:             time.Hour,
		ResolveStatsWindow: time.Hour,
	}
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, ps.Client(), library.New(cfg.IgnoreClass, log), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testEnv{srv: NewServer(orch, nil, log, cfg), ps: ps}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return e.do(t, method, path, bytes.NewReader(b), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// ingest uploads content and waits for the job to finish.
func (e *testEnv) ingest(t *testing.T, filename, content string, fields map[string]string) pipeline.JobSnapshot {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write([]byte(content))
	mw.Close()

	rec := e.do(t, http.MethodPost, "/api/ingest", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	return e.wait(t, decode[map[string]any](t, rec)["job_id"].(string))
}

// wait polls a job until it reaches a terminal status.
func (e *testEnv) wait(t *testing.T, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := e.do(t, http.MethodGet, "/api/ingest/"+jobID+"/status", nil, "")
		snap := decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Done() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return pipeline.JobSnapshot{}
}

func (e *testEnv) ingestChapter(t *testing.T) {
	t.Helper()
	snap := e.ingest(t, "chapter.html", testHTML, map[string]string{
		"user_id":     "u1",
		"doc_id":      "d1",
		"spine_index": "1",
		"idref":       "chap01ref",
	})
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed ingest, got %s %v", snap.Status, snap.Progress.Errors)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_RejectsMissingAndWrongKey(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents?user_id=u1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents?user_id=u1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["error"]; got != "invalid api key" {
		t.Fatalf("expected json error, got %q", got)
	}
}

func TestIngest_Validation(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "a.txt")
	fw.Write([]byte("hello"))
	mw.Close()
	rec := env.do(t, http.MethodPost, "/api/ingest", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", rec.Code)
	}

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	mw.WriteField("user_id", "u1")
	fw, _ = mw.CreateFormFile("file", "image.png")
	fw.Write([]byte("png"))
	mw.Close()
	rec = env.do(t, http.MethodPost, "/api/ingest", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported type, got %d", rec.Code)
	}
}

func TestIngest_BatchTakesConsecutiveSpinePositions(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("user_id", "u1")
	mw.WriteField("spine_start", "3")
	for _, name := range []string{"one.txt", "two.txt", "skip.png"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte("Some text for " + name))
	}
	mw.Close()

	rec := env.do(t, http.MethodPost, "/api/ingest/batch", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	jobs := decode[struct {
		Jobs []map[string]any `json:"jobs"`
	}](t, rec).Jobs
	if len(jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(jobs))
	}
	if _, ok := jobs[2]["error"]; !ok {
		t.Fatalf("expected an error for the unsupported file, got %v", jobs[2])
	}

	for i, want := range []string{"epubcfi(/6/8!", "epubcfi(/6/10!"} {
		snap := env.wait(t, jobs[i]["job_id"].(string))
		if snap.Status != pipeline.StatusCompleted {
			t.Fatalf("expected completed job, got %s %v", snap.Status, snap.Progress.Errors)
		}
		rec := env.do(t, http.MethodGet, "/api/documents/"+snap.DocID+"/locations?user_id=u1", nil, "")
		locs := decode[struct {
			Locations []struct {
				CFI string `json:"cfi"`
			} `json:"locations"`
		}](t, rec).Locations
		if len(locs) == 0 || !strings.HasPrefix(locs[0].CFI, want) {
			t.Fatalf("expected locations under %s, got %+v", want, locs)
		}
	}
}

func TestIngest_RejectsNegativeSpineIndex(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("user_id", "u1")
	mw.WriteField("spine_index", "-1")
	fw, _ := mw.CreateFormFile("file", "a.txt")
	fw.Write([]byte("hello"))
	mw.Close()
	rec := env.do(t, http.MethodPost, "/api/ingest", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDocuments_AnchorResolveHighlight(t *testing.T) {
	env := newTestEnv(t)
	env.ingestChapter(t)

	rec := env.doJSON(t, http.MethodPost, "/api/documents/d1/anchor?user_id=u1", map[string]any{"id": "para01", "offset": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("anchor: %d %s", rec.Code, rec.Body.String())
	}
	cfis := decode[struct{ CFIs []string }](t, rec).CFIs
	if len(cfis) != 1 || cfis[0] != "epubcfi(/6/4[chap01ref]!/4[body01]/2[para01]/1:3)" {
		t.Fatalf("unexpected cfis %v", cfis)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/documents/d1/anchor?user_id=u1", map[string]any{"text": "beta"})
	if got := decode[struct{ CFIs []string }](t, rec).CFIs; len(got) != 1 || got[0] != betaCFI {
		t.Fatalf("expected %s, got %v", betaCFI, got)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/documents/d1/anchor?user_id=u1", map[string]any{"id": "para01", "text": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for two selectors, got %d", rec.Code)
	}
	rec = env.doJSON(t, http.MethodPost, "/api/documents/d1/anchor?user_id=u1", map[string]any{"id": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}

	resolvePath := "/api/documents/d1/resolve?user_id=u1&cfi=" + url.QueryEscape(betaCFI)
	rec = env.do(t, http.MethodGet, resolvePath, nil, "")
	res := decode[library.Resolution](t, rec)
	if res.Text != "beta" {
		t.Fatalf("expected beta, got %q (%s)", res.Text, rec.Body.String())
	}

	rec = env.doJSON(t, http.MethodPost, "/api/documents/d1/highlights?user_id=u1", map[string]string{"cfi": betaCFI})
	if rec.Code != http.StatusOK {
		t.Fatalf("highlight: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, resolvePath, nil, "")
	if res := decode[library.Resolution](t, rec); res.Text != "beta" {
		t.Fatalf("expected beta after highlight, got %q", res.Text)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/d1/highlights?user_id=u1", nil, "")
	if hs := decode[struct{ Highlights []string }](t, rec).Highlights; len(hs) != 1 {
		t.Fatalf("expected one highlight, got %v", hs)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/resolve", nil, "")
	st := decode[struct {
		Stats struct {
			Count int `json:"count"`
			Exact int `json:"exact"`
		} `json:"stats"`
	}](t, rec)
	if st.Stats.Count != 2 || st.Stats.Exact != 2 {
		t.Fatalf("expected 2 exact resolves, got %+v", st.Stats)
	}
}

func TestDocuments_ResolveErrors(t *testing.T) {
	env := newTestEnv(t)
	env.ingestChapter(t)

	rec := env.do(t, http.MethodGet, "/api/documents/d1/resolve?user_id=u1&cfi=garbage", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid cfi, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/documents/missing/resolve?user_id=u1&cfi="+url.QueryEscape(betaCFI), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown document, got %d", rec.Code)
	}
	rec = env.doJSON(t, http.MethodPost, "/api/documents/d1/highlights?user_id=u1", map[string]string{"cfi": "epubcfi(/6/4!/4/2/1:0)"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for highlighting a position, got %d", rec.Code)
	}
}

func TestDocuments_ListLocationsDelete(t *testing.T) {
	env := newTestEnv(t)
	env.ingestChapter(t)

	rec := env.do(t, http.MethodGet, "/api/documents?user_id=u1", nil, "")
	list := decode[struct {
		Documents []library.Summary `json:"documents"`
	}](t, rec)
	if len(list.Documents) != 1 || list.Documents[0].Title != "Chapter" {
		t.Fatalf("unexpected documents %+v", list.Documents)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/d1/locations?user_id=u1", nil, "")
	locs := decode[struct {
		Count     int `json:"count"`
		Locations []struct {
			CFI string `json:"cfi"`
		} `json:"locations"`
	}](t, rec)
	if locs.Count == 0 || !strings.HasPrefix(locs.Locations[0].CFI, "epubcfi(/6/4[chap01ref]!") {
		t.Fatalf("unexpected locations %+v", locs)
	}

	rec = env.do(t, http.MethodDelete, "/api/documents/d1?user_id=u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/documents/d1/locations?user_id=u1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if keys := env.ps.Keys(); len(keys) != 0 {
		t.Fatalf("expected pathstore to be empty, got %v", keys)
	}
}

func TestCFIEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/cfi/parse", map[string]string{"cfi": betaCFI})
	parsed := decode[map[string]any](t, rec)
	if parsed["cfi"] != betaCFI || parsed["is_range"] != true {
		t.Fatalf("unexpected parse result %v", parsed)
	}
	rec = env.doJSON(t, http.MethodPost, "/api/cfi/parse", map[string]string{"cfi": "nope"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/cfi/compare", map[string]string{
		"a": "epubcfi(/6/4!/4/2/1:3)",
		"b": "epubcfi(/6/4!/4/10/1:0)",
	})
	if got := decode[map[string]int](t, rec)["result"]; got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/cfi/sort", map[string][]string{"cfis": {
		"epubcfi(/6/6!/4/2)",
		"bad",
		"epubcfi(/6/4!/4/10)",
		"epubcfi(/6/4!/4/2/1:5)",
	}})
	sorted := decode[struct {
		CFIs    []string `json:"cfis"`
		Invalid []string `json:"invalid"`
	}](t, rec)
	want := []string{"epubcfi(/6/4!/4/2/1:5)", "epubcfi(/6/4!/4/10)", "epubcfi(/6/6!/4/2)"}
	if strings.Join(sorted.CFIs, " ") != strings.Join(want, " ") || len(sorted.Invalid) != 1 {
		t.Fatalf("unexpected sort result %+v", sorted)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/cfi/collapse", map[string]any{"cfi": betaCFI, "to_start": false})
	if got := decode[map[string]any](t, rec)["cfi"]; got != "epubcfi(/6/4[chap01ref]!/4[body01]/4[para02]/1:10)" {
		t.Fatalf("unexpected collapse %v", got)
	}
}

func TestBookmarks(t *testing.T) {
	env := newTestEnv(t)

	for _, c := range []string{"epubcfi(/6/4!/4/10/1:3)", "epubcfi(/6/4!/4/2/1:0)"} {
		rec := env.doJSON(t, http.MethodPut, "/api/bookmarks", map[string]string{"user_id": "u1", "doc_id": "d1", "cfi": c})
		if rec.Code != http.StatusCreated {
			t.Fatalf("put bookmark: %d %s", rec.Code, rec.Body.String())
		}
	}
	rec := env.doJSON(t, http.MethodPut, "/api/bookmarks", map[string]string{"user_id": "u1", "doc_id": "d1", "cfi": "bad"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid cfi, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/bookmarks?user_id=u1&doc_id=d1", nil, "")
	list := decode[struct {
		Bookmarks []struct {
			CFI string `json:"cfi"`
		} `json:"bookmarks"`
	}](t, rec)
	if len(list.Bookmarks) != 2 || list.Bookmarks[0].CFI != "epubcfi(/6/4!/4/2/1:0)" {
		t.Fatalf("expected bookmarks in reading order, got %+v", list.Bookmarks)
	}
}
