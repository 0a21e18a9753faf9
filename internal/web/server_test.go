package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	for i, section := range []string{"dev", "ai", "dev"} {
		err := db.InsertPublication(context.Background(), database, &db.Publication{
			ID:         string(rune('a' + i)),
			DocumentID: "index.html",
			Section:    section,
			Name:       "entry",
			URL:        "#",
			CreatedAt:  int64(i),
		})
		if err != nil {
			t.Fatalf("InsertPublication: %v", err)
		}
	}

	srv := httptest.NewServer(NewServer(database, "Bookmark Bot", "127.0.0.1", 0).Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleAlive(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var buf strings.Builder
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if buf.String() != "Bookmark Bot is alive!" {
		t.Errorf("body = %q", buf.String())
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/admin")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["db"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandlePublications(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/publications?section=dev&limit=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var out publish.HistoryOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "c" {
		t.Errorf("items = %+v, want newest dev entry", out.Items)
	}
	if out.Pagination.Total != 2 || !out.Pagination.HasMore {
		t.Errorf("pagination = %+v", out.Pagination)
	}
}

func TestNewServer_WithoutDatabase(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil, "bot", "127.0.0.1", 0).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/publications")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := NewServer(nil, "bot", "127.0.0.1", 0)
	srv.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, nil) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
