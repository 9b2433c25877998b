package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"lifelog/internal/api"
	"lifelog/internal/logging"
	"lifelog/internal/testsupport"
)

type blobStub struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBlobStub() *blobStub {
	return &blobStub{objects: make(map[string][]byte)}
}

func (b *blobStub) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *blobStub) Delete(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return false, nil
	}
	delete(b.objects, key)
	return true, nil
}

func (b *blobStub) PresignGet(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

type enqueueStub struct {
	mu    sync.Mutex
	calls []int64
}

func (e *enqueueStub) Enqueue(entryID int64, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, entryID)
}

func (e *enqueueStub) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func newTestAPIServer(t *testing.T) (*apiServer, *blobStub, *enqueueStub) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs := newBlobStub()
	enq := &enqueueStub{}
	svc := api.NewEntryService(store, blobs, enq, logging.NewNop())
	return &apiServer{entries: svc, logger: logging.NewNop()}, blobs, enq
}

func doJSON(t *testing.T, srv *apiServer, handler http.HandlerFunc, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-Owner-ID", "7")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestAPIServerCreateAndFetchEntry(t *testing.T) {
	srv, _, enq := newTestAPIServer(t)

	w := doJSON(t, srv, srv.handleEntries, http.MethodPost, "/api/entries", api.CreateRequest{
		Title: "Sabah", Note: "Güzel bir gün", Mood: "happy", MoodIntensity: 8,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != "none" || created.HasMedia {
		t.Fatalf("media-less entry should be terminal, got status=%q hasMedia=%v", created.Status, created.HasMedia)
	}
	if enq.count() != 0 {
		t.Fatal("media-less create must not enqueue")
	}

	w = doJSON(t, srv, srv.handleEntryByID, http.MethodGet, fmt.Sprintf("/api/entries/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var fetched api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fetched.Title != "Sabah" || fetched.OwnerID != 7 {
		t.Fatalf("unexpected entry: %+v", fetched)
	}
}

func TestAPIServerRequiresOwnerHeader(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	w := httptest.NewRecorder()
	srv.handleEntries(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without X-Owner-ID, got %d", w.Code)
	}
}

func TestAPIServerMissingEntryIs404(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	w := doJSON(t, srv, srv.handleEntryByID, http.MethodGet, "/api/entries/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIServerValidationIs400(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	w := doJSON(t, srv, srv.handleEntries, http.MethodPost, "/api/entries", api.CreateRequest{
		Mood: "happy", MoodIntensity: 42,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range intensity, got %d", w.Code)
	}
}

func TestAPIServerUpload(t *testing.T) {
	srv, blobs, enq := newTestAPIServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="morning.mp4"`)
	header.Set("Content-Type", "video/mp4")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("not a real video")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.WriteField("title", "Kahvaltı"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.WriteField("manualTags", "yemek, sabah"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/entries/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner-ID", "7")
	w := httptest.NewRecorder()
	srv.handleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Status != "pending" || !view.HasMedia {
		t.Fatalf("uploaded entry should be pending with media, got %+v", view)
	}
	if view.Title != "Kahvaltı" || len(view.ManualTags) != 2 {
		t.Fatalf("form metadata not applied: %+v", view)
	}
	if !strings.HasPrefix(view.VideoURL, "https://signed.example/entries/7/") {
		t.Fatalf("unexpected video url %q", view.VideoURL)
	}
	blobs.mu.Lock()
	stored := len(blobs.objects)
	blobs.mu.Unlock()
	if stored != 1 {
		t.Fatalf("expected one stored blob, got %d", stored)
	}
	if enq.count() != 1 {
		t.Fatalf("expected one enqueue, got %d", enq.count())
	}
}

func TestAPIServerUploadRejectsNonVideo(t *testing.T) {
	srv, blobs, _ := newTestAPIServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("plain text")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/entries/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner-ID", "7")
	w := httptest.NewRecorder()
	srv.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-video upload, got %d", w.Code)
	}
	blobs.mu.Lock()
	stored := len(blobs.objects)
	blobs.mu.Unlock()
	if stored != 0 {
		t.Fatalf("rejected upload must not store a blob, got %d", stored)
	}
}

func TestAPIServerListPagination(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, srv, srv.handleEntries, http.MethodPost, "/api/entries", api.CreateRequest{
			Note: fmt.Sprintf("gün %d", i),
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d", w.Code)
		}
	}

	w := doJSON(t, srv, srv.handleEntries, http.MethodGet, "/api/entries?limit=2&offset=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var page api.EntryPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Entries) != 2 || page.Total != 3 || page.Limit != 2 {
		t.Fatalf("unexpected page: entries=%d total=%d limit=%d", len(page.Entries), page.Total, page.Limit)
	}
}

func TestAPIServerDeleteEntry(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	w := doJSON(t, srv, srv.handleEntries, http.MethodPost, "/api/entries", api.CreateRequest{Note: "silinecek"})
	var created api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	path := fmt.Sprintf("/api/entries/%d", created.ID)
	if w := doJSON(t, srv, srv.handleEntryByID, http.MethodDelete, path, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := doJSON(t, srv, srv.handleEntryByID, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted entry should 404, got %d", w.Code)
	}
}

func TestAPIServerFavoriteToggle(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)

	w := doJSON(t, srv, srv.handleEntries, http.MethodPost, "/api/entries", api.CreateRequest{Note: "favori"})
	var created api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	w = doJSON(t, srv, srv.handleEntryByID, http.MethodPost, fmt.Sprintf("/api/entries/%d/favorite", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var toggled api.EntryView
	if err := json.Unmarshal(w.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !toggled.IsFavorite {
		t.Fatal("expected favorite after toggle")
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	t.Run("empty token passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		w := httptest.NewRecorder()
		authMiddleware("", next)(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		w := httptest.NewRecorder()
		authMiddleware("secret", next)(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		authMiddleware("secret", next)(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("correct token accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer secret")
		w := httptest.NewRecorder()
		authMiddleware("secret", next)(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}
