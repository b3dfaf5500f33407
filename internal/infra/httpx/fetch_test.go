package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, timeout time.Duration) Fetcher {
	t.Helper()
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient 失败：%v", err)
	}
	return Fetcher{Client: c, Timeout: timeout}
}

func TestFetch_OK(t *testing.T) {
	var ua, accept atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		accept.Store(r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	b, err := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(b) != "%PDF-1.4 body" {
		t.Fatalf("body 不一致：%q", string(b))
	}
	if s, _ := ua.Load().(string); !strings.HasPrefix(s, "Mozilla/5.0") {
		t.Fatalf("期望注入 UA，实际 %q", s)
	}
	if s, _ := accept.Load().(string); !strings.HasPrefix(s, "application/pdf") {
		t.Fatalf("期望注入文档 Accept，实际 %q", s)
	}
}

func TestFetch_StatusError(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindStatus || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 status 404 FetchError，实际 %v", err)
	}
	if fe.Error() != "HTTP 404" {
		t.Fatalf("错误文案不符合预期：%q", fe.Error())
	}
	if hits.Load() != 1 {
		t.Fatalf("只允许单次尝试，实际请求 %d 次", hits.Load())
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 50*time.Millisecond).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindTimeout {
		t.Fatalf("期望 timeout FetchError，实际 %v", err)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := srv.URL
	srv.Close()

	_, err := newTestFetcher(t, time.Second).Fetch(context.Background(), u)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindNetwork {
		t.Fatalf("期望 network FetchError，实际 %v", err)
	}
}

func TestFetch_FollowsDriveConfirmFormOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/uc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
<form id="download-form" action="/download" method="get">
  <input type="submit" value="Download anyway"/>
  <input type="hidden" name="id" value="abc">
  <input type="hidden" name="export" value="download">
  <input type="hidden" name="confirm" value="t">
</form></body></html>`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("id") != "abc" || q.Get("confirm") != "t" {
			http.Error(w, "bad confirm", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-real"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, err := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL+"/uc?export=download&id=abc")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(b) != "%PDF-real" {
		t.Fatalf("期望跟随确认页拿到真实文档，实际 %q", string(b))
	}
}

func TestFetch_PlainHTMLIsReturnedAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	b, err := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(string(b), "hello") {
		t.Fatalf("非确认页应原样返回：%q", string(b))
	}
}
