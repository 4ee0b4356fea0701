package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExecute(t *testing.T) {
	executor := NewExecutor(5 * time.Second)

	t.Run("remote error statuses pass through as successes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"nope"}`))
		}))
		defer srv.Close()

		result := executor.Execute(Invocation{URL: srv.URL})
		if result.Status != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", result.Status)
		}
		if result.StatusText != "Not Found" {
			t.Fatalf("expected status text Not Found, got %q", result.StatusText)
		}
		data, ok := result.Data.(map[string]any)
		if !ok || data["msg"] != "nope" {
			t.Fatalf("expected decoded JSON body, got %#v", result.Data)
		}
	})

	t.Run("method defaults to GET", func(t *testing.T) {
		var gotMethod string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
		}))
		defer srv.Close()

		executor.Execute(Invocation{URL: srv.URL})
		if gotMethod != http.MethodGet {
			t.Fatalf("expected GET, got %q", gotMethod)
		}
	})

	t.Run("only checked headers are transmitted", func(t *testing.T) {
		var gotAuth, gotDebug string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotDebug = r.Header.Get("X-Debug")
		}))
		defer srv.Close()

		executor.Execute(Invocation{
			URL: srv.URL,
			Headers: []HeaderEntry{
				{Key: "Authorization", Value: "Bearer abc", IsChecked: true},
				{Key: "X-Debug", Value: "1", IsChecked: false},
				{Key: "", Value: "ignored", IsChecked: true},
			},
		})
		if gotAuth != "Bearer abc" {
			t.Fatalf("expected checked header to be sent, got %q", gotAuth)
		}
		if gotDebug != "" {
			t.Fatalf("unchecked header must not be sent, got %q", gotDebug)
		}
	})

	t.Run("params merge into the query string", func(t *testing.T) {
		var gotQuery map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
		}))
		defer srv.Close()

		executor.Execute(Invocation{
			URL:    srv.URL + "?fixed=yes",
			Params: map[string]string{"search": "test"},
		})
		if got := gotQuery["search"]; len(got) != 1 || got[0] != "test" {
			t.Fatalf("expected search param, got %v", gotQuery)
		}
		if got := gotQuery["fixed"]; len(got) != 1 || got[0] != "yes" {
			t.Fatalf("expected existing query to survive, got %v", gotQuery)
		}
	})

	t.Run("malformed JSON body is sent verbatim", func(t *testing.T) {
		var gotBody string
		var gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			gotBody = string(raw)
			gotContentType = r.Header.Get("Content-Type")
		}))
		defer srv.Close()

		executor.Execute(Invocation{URL: srv.URL, Method: "POST", Body: "{invalid"})
		if gotBody != "{invalid" {
			t.Fatalf("expected literal body, got %q", gotBody)
		}
		if gotContentType != "text/plain" {
			t.Fatalf("expected text/plain for a non-JSON draft, got %q", gotContentType)
		}
	})

	t.Run("valid JSON body is sent as JSON", func(t *testing.T) {
		var gotBody map[string]any
		var gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			gotContentType = r.Header.Get("Content-Type")
		}))
		defer srv.Close()

		executor.Execute(Invocation{URL: srv.URL, Method: "POST", Body: `{"sample": "data"}`})
		if gotBody["sample"] != "data" {
			t.Fatalf("expected JSON body, got %v", gotBody)
		}
		if gotContentType != "application/json" {
			t.Fatalf("expected application/json, got %q", gotContentType)
		}
	})

	t.Run("duration and size are measured", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("hello"))
		}))
		defer srv.Close()

		result := executor.Execute(Invocation{URL: srv.URL})
		if result.Size != 5 {
			t.Fatalf("expected size 5, got %d", result.Size)
		}
		if result.Time < 0 {
			t.Fatalf("expected a non-negative duration, got %d", result.Time)
		}
		if result.Data != "hello" {
			t.Fatalf("expected non-JSON body to come back as a string, got %#v", result.Data)
		}
	})

	t.Run("unreachable host maps to the network failure variant", func(t *testing.T) {
		fast := NewExecutor(500 * time.Millisecond)
		result := fast.Execute(Invocation{URL: "http://127.0.0.1:1"})
		if result.Status != 0 || result.StatusText != "Network Error" {
			t.Fatalf("expected network failure, got %+v", result)
		}
		data, ok := result.Data.(map[string]string)
		if !ok || data["message"] == "" {
			t.Fatalf("expected a failure message, got %#v", result.Data)
		}
		if result.Time != 0 || result.Size != 0 {
			t.Fatalf("expected zeroed time and size, got %+v", result)
		}
	})

	t.Run("timeout maps to the network failure variant", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer srv.Close()

		fast := NewExecutor(50 * time.Millisecond)
		result := fast.Execute(Invocation{URL: srv.URL})
		if result.Status != 0 || result.StatusText != "Network Error" {
			t.Fatalf("expected network failure on timeout, got %+v", result)
		}
	})
}
