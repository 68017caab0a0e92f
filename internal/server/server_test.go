package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
)

type fakeAuditor struct {
	err  error
	last model.Request
}

func (f *fakeAuditor) Handle(_ context.Context, req model.Request) (*model.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Response{
		ID:    "id-1",
		Audit: model.NewAuditResult(req.URL, model.EngineAxe, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, 100, "clean"),
	}, nil
}

type fakeStore struct {
	audits map[string]*model.Response
	list   []database.AuditMetadata
	err    error
	url    string
	limit  int
}

func (f *fakeStore) Get(_ context.Context, id string) (*model.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.audits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	return resp, nil
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]database.AuditMetadata, error) {
	f.limit = limit
	return f.list, f.err
}

func (f *fakeStore) History(_ context.Context, url string, limit int) ([]database.AuditMetadata, error) {
	f.url, f.limit = url, limit
	return f.list, f.err
}

func newTestServer(a Auditor, opts ...Option) *Server {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(a, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestHealth tests the liveness probe.
func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(&fakeAuditor{}, WithVersion("1.0.0")).Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"version":"1.0.0"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

// TestAuditHandler tests POST /api/audit.
func TestAuditHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{
			name:       "successful audit",
			body:       `{"url":"https://example.com/","engine":"axe","language":"fr"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid url",
			body:       `{"url":"ftp://example.com/","engine":"axe"}`,
			err:        fmt.Errorf("%w: unsupported scheme", model.ErrConfiguration),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown engine",
			body:       `{"url":"https://example.com/","engine":"lighthouse"}`,
			err:        model.ErrUnknownEngineSelector,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "quota exceeded",
			body:       `{"url":"https://example.com/","engine":"all"}`,
			err:        fmt.Errorf("%w: plan free", model.ErrQuotaExceeded),
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "unexpected error",
			body:       `{"url":"https://example.com/","engine":"axe"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auditor := &fakeAuditor{err: tt.err}
			rec := do(t, newTestServer(auditor).Handler(), http.MethodPost, "/api/audit", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp model.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.ID != "id-1" || resp.Audit == nil || resp.Audit.Score != 100 {
				t.Errorf("unexpected response %+v", resp)
			}
			if auditor.last.Language != "fr" || auditor.last.Engine != "axe" {
				t.Errorf("request not forwarded: %+v", auditor.last)
			}
		})
	}
}

// TestHistoryHandlers tests the stored audit routes.
func TestHistoryHandlers(t *testing.T) {
	t.Parallel()

	t.Run("get stored audit", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{audits: map[string]*model.Response{
			"abc": {ID: "abc", Audit: model.EmptyAuditResult("https://example.com/", model.EngineRGAA, time.Time{}, "")},
		}}
		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(store)).Handler(), http.MethodGet, "/api/audits/abc", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"abc"`) {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown audit", func(t *testing.T) {
		t.Parallel()

		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(&fakeStore{})).Handler(), http.MethodGet, "/api/audits/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("corrupted audit", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{err: database.ErrCorrupted}
		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(store)).Handler(), http.MethodGet, "/api/audits/abc", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("recent audits", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{list: []database.AuditMetadata{{ID: "a", Score: 80}}}
		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(store)).Handler(), http.MethodGet, "/api/audits?limit=1000", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if store.limit != maxListLimit {
			t.Errorf("limit = %d, want %d", store.limit, maxListLimit)
		}
		if strings.Contains(rec.Body.String(), "scoreDelta") {
			t.Error("scoreDelta only applies to a single url")
		}
	})

	t.Run("history of one url with delta", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{list: []database.AuditMetadata{{ID: "b", Score: 90}, {ID: "a", Score: 80}}}
		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(store)).Handler(), http.MethodGet, "/api/audits?url=https://example.com/", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if store.url != "https://example.com/" || store.limit != defaultListLimit {
			t.Errorf("History called with %q, %d", store.url, store.limit)
		}
		if !strings.Contains(rec.Body.String(), `"scoreDelta":10`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()

		rec := do(t, newTestServer(&fakeAuditor{}, WithStore(&fakeStore{})).Handler(), http.MethodGet, "/api/audits?limit=-1", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("history disabled", func(t *testing.T) {
		t.Parallel()

		h := newTestServer(&fakeAuditor{}).Handler()
		for _, path := range []string{"/api/audits", "/api/audits/abc"} {
			if rec := do(t, h, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
				t.Errorf("%s status = %d, want 404", path, rec.Code)
			}
		}
	})
}

// TestRun tests graceful shutdown.
func TestRun(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeAuditor{}, WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
