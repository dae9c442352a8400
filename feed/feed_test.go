package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	posts []Post
	err   error
}

func (s *countingSource) Recent(_ context.Context, limit int) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestCacheFreshness(t *testing.T) {
	src := &countingSource{posts: []Post{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(src, 30*time.Minute).WithClock(clk.now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, 20); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("calls = %d, want 1", src.calls)
	}

	clk.t = clk.t.Add(29 * time.Minute)
	if _, err := c.Get(ctx, 20); err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Fatalf("calls within ttl = %d, want 1", src.calls)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, 20); err != nil {
			t.Fatal(err)
		}
	}
	if src.calls != 2 {
		t.Fatalf("calls after expiry = %d, want exactly 2", src.calls)
	}
}

func TestCacheConcurrentExpiryFetchesOnce(t *testing.T) {
	src := &countingSource{posts: []Post{{ID: "1"}}}
	c := NewCache(src, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), 5); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1", src.calls)
	}
}

func TestCacheLimitAndFailure(t *testing.T) {
	src := &countingSource{posts: []Post{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	clk := &clock{t: time.Unix(0, 0)}
	c := NewCache(src, time.Minute).WithClock(clk.now)
	ctx := context.Background()

	got, err := c.Get(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	boom := errors.New("boom")
	src.err = boom
	clk.t = clk.t.Add(2 * time.Minute)
	if _, err := c.Get(ctx, 2); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	src.err = nil
	if _, err := c.Refresh(ctx, 2); err != nil {
		t.Fatal(err)
	}
	c.Invalidate()
	if _, err := c.Get(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if src.calls != 4 {
		t.Errorf("calls = %d, want 4", src.calls)
	}
}

func TestGraphClientRecent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "user-token" {
			t.Errorf("accounts token = %q", r.URL.Query().Get("access_token"))
		}
		w.Write([]byte(`{"data":[{"id":"p1","name":"No IG","access_token":"pt1"},{"id":"p2","name":"Studio","access_token":"pt2"}]}`))
	})
	mux.HandleFunc("/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1"}`))
	})
	mux.HandleFunc("/p2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p2","instagram_business_account":{"id":"ig9"}}`))
	})
	mux.HandleFunc("/ig9/media", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("access_token") != "pt2" || q.Get("limit") != "5" {
			t.Errorf("media query = %v", q)
		}
		w.Write([]byte(`{"data":[
			{"id":"1","caption":"a","media_url":"https://cdn/1.jpg","permalink":"https://ig/1","media_type":"IMAGE","timestamp":"2025-01-01T00:00:00+0000"},
			{"id":"2","media_url":"https://cdn/2.mp4","permalink":"https://ig/2","media_type":"VIDEO","timestamp":"2025-01-02T00:00:00+0000"},
			{"id":"3","media_url":"https://cdn/3.jpg","permalink":"https://ig/3","media_type":"CAROUSEL_ALBUM","timestamp":"2025-01-03T00:00:00+0000"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGraphClient("user-token")
	g.BaseURL = srv.URL
	posts, err := g.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []Post{
		{ID: "1", Src: "https://cdn/1.jpg", Link: "https://ig/1", Caption: "a", Date: "2025-01-01T00:00:00+0000"},
		{ID: "3", Src: "https://cdn/3.jpg", Link: "https://ig/3", Date: "2025-01-03T00:00:00+0000"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Errorf("posts (-want +got):\n%s", diff)
	}
}

func TestGraphClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Error validating access token","code":190}}`))
	}))
	defer srv.Close()

	g := NewGraphClient("expired")
	g.BaseURL = srv.URL
	_, err := g.Recent(context.Background(), 5)
	var up *UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if up.StatusCode != http.StatusBadRequest || up.Message != "Error validating access token" {
		t.Errorf("upstream = %+v", up)
	}

	if _, err := NewGraphClient("").Recent(context.Background(), 5); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}
