package scout

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProbeFetch(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			gotAgent = req.Header.Get("User-Agent")
			fmt.Fprint(w, "hello probe")
		}))
	defer server.Close()

	pf := NewProbeFetcher()
	res, err := pf.Fetch(server.URL + "/page")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected status 200, got %v", res.StatusCode)
	}
	if res.Body != "hello probe" {
		t.Errorf("Unexpected body: %q", res.Body)
	}
	if res.EffectiveURL != server.URL+"/page" {
		t.Errorf("Expected effective url %v, got %v", server.URL+"/page", res.EffectiveURL)
	}
	if gotAgent != Config.Fetcher.UserAgent {
		t.Errorf("Expected user agent %q, got %q", Config.Fetcher.UserAgent, gotAgent)
	}
}

func TestProbeFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer server.Close()

	pf := NewProbeFetcher()
	res, err := pf.Fetch(server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.StatusCode != 404 {
		t.Errorf("Expected status 404, got %v", res.StatusCode)
	}
}

func TestProbeFetchFollowsRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path == "/old" {
				http.Redirect(w, req, "/new", http.StatusMovedPermanently)
				return
			}
			fmt.Fprint(w, "landed")
		}))
	defer server.Close()

	pf := NewProbeFetcher()
	res, err := pf.Fetch(server.URL + "/old")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected status 200 after redirect, got %v", res.StatusCode)
	}
	if res.EffectiveURL != server.URL+"/new" {
		t.Errorf("Expected effective url %v, got %v", server.URL+"/new", res.EffectiveURL)
	}
}

func TestProbeFetchBodyExcerptBounded(t *testing.T) {
	orig := Config.Fetcher.MaxBodyExcerptBytes
	defer func() { Config.Fetcher.MaxBodyExcerptBytes = orig }()
	Config.Fetcher.MaxBodyExcerptBytes = 16

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprint(w, strings.Repeat("x", 4096))
		}))
	defer server.Close()

	pf := NewProbeFetcher()
	res, err := pf.Fetch(server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(res.Body) != 16 {
		t.Errorf("Expected a 16 byte excerpt, got %v bytes", len(res.Body))
	}
}

func TestProbeFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {}))
	server.Close()

	pf := NewProbeFetcher()
	_, err := pf.Fetch(server.URL)
	if err == nil {
		t.Error("Expected an error fetching from a dead server")
	}
}
