package code

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nevindra/codeloop"
)

// fixedExecutor returns res for every call and records the last request.
type fixedExecutor struct {
	res      codeloop.ExecResult
	entered  chan struct{}
	block    chan struct{}
	lastCode string
	lastLang codeloop.Language
}

func (f *fixedExecutor) Execute(ctx context.Context, code string, lang codeloop.Language) codeloop.ExecResult {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.lastCode, f.lastLang = code, lang
	res := f.res
	res.Duration = 42 * time.Millisecond
	return res
}

func TestRemote_RoundTrip(t *testing.T) {
	exec := &fixedExecutor{res: codeloop.Ok("hello\n")}
	srv := httptest.NewServer(NewHandler(exec, 2, nil))
	defer srv.Close()

	res := NewRemote(srv.URL+"/").Execute(context.Background(), `print("hello")`, codeloop.LangPython)
	if !res.OK || res.Output != "hello\n" {
		t.Fatalf("got %+v", res)
	}
	if res.Duration != 42*time.Millisecond {
		t.Errorf("got duration %s, want 42ms", res.Duration)
	}
	if exec.lastCode != `print("hello")` || exec.lastLang != codeloop.LangPython {
		t.Errorf("server saw %q / %s", exec.lastCode, exec.lastLang)
	}
}

func TestRemote_FailurePassesThrough(t *testing.T) {
	exec := &fixedExecutor{res: codeloop.Fail(codeloop.KindTimeout, "execution exceeded 10s")}
	srv := httptest.NewServer(NewHandler(exec, 1, nil))
	defer srv.Close()

	res := NewRemote(srv.URL).Execute(context.Background(), "while True: pass", codeloop.LangPython)
	if res.OK || res.Kind != codeloop.KindTimeout || res.Message != "execution exceeded 10s" {
		t.Errorf("got %+v", res)
	}
}

func TestRemote_RetryOnTransient(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"busy"}`))
			return
		}
		json.NewEncoder(w).Encode(executeResponse{ExecResult: codeloop.Ok("retried")})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, WithRemoteRetries(2, 10*time.Millisecond))
	res := r.Execute(context.Background(), "x = 1", codeloop.LangPython)
	if !res.OK || res.Output != "retried" {
		t.Fatalf("expected success after retry, got %+v", res)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestRemote_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, WithRemoteRetries(3, time.Millisecond)).
		Execute(context.Background(), "x", codeloop.LangPython)
	if res.Kind != codeloop.KindLaunch || !strings.Contains(res.Message, "400") {
		t.Errorf("got %+v", res)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestRemote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewRemote(url, WithRemoteRetries(2, time.Millisecond)).
		Execute(context.Background(), "x", codeloop.LangPython)
	if res.OK || res.Kind != codeloop.KindLaunch {
		t.Errorf("got %+v", res)
	}
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	h := NewHandler(&fixedExecutor{res: codeloop.Ok("")}, 1, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown language", `{"code":"x","language":"cobol"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/execute", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /execute: got %d, want 405", rec.Code)
	}
}

func TestHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&fixedExecutor{}, 1, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Busy(t *testing.T) {
	exec := &fixedExecutor{
		res:     codeloop.Ok("done"),
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	srv := httptest.NewServer(NewHandler(exec, 1, nil))
	defer srv.Close()

	done := make(chan codeloop.ExecResult, 1)
	go func() {
		done <- NewRemote(srv.URL).Execute(context.Background(), "first", codeloop.LangPython)
	}()
	<-exec.entered

	resp, err := http.Post(srv.URL+"/execute", "application/json", strings.NewReader(`{"code":"second","language":"python"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	close(exec.block)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while busy, got %d", resp.StatusCode)
	}
	if res := <-done; !res.OK {
		t.Errorf("first request failed: %+v", res)
	}
}
