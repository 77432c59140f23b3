package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestExecuteSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"object":[{"id":"1","title":"Poster"}]}}`))
	})

	r := New(srv.URL, srv.Client())
	if !r.Execute(context.Background(), "{ object { id } }") {
		t.Fatal("Expected execute to run")
	}

	if calls.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", calls.Load())
	}
	if r.Endpoint != srv.URL {
		t.Errorf("Expected endpoint %s, got %s", srv.URL, r.Endpoint)
	}
	if !strings.HasPrefix(gotContentType, "application/json") {
		t.Errorf("Expected JSON content type, got %s", gotContentType)
	}
	if gotBody["query"] != "{ object { id } }" {
		t.Errorf("Expected query in body, got %v", gotBody["query"])
	}

	state := r.State()
	if state.Loading {
		t.Error("Expected loading to be cleared")
	}
	if state.Err != "" {
		t.Errorf("Expected no error, got %s", state.Err)
	}
	if !strings.Contains(string(state.Data), `"Poster"`) {
		t.Errorf("Expected data to be stored, got %s", state.Data)
	}
}

func TestExecuteAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"x"},{"message":"y"}]}`))
	})

	r := New(srv.URL, srv.Client())
	r.Execute(context.Background(), "{ broken }")

	state := r.State()
	if state.Err != "x\ny" {
		t.Errorf("Expected error %q, got %q", "x\ny", state.Err)
	}
	if state.Data != nil {
		t.Errorf("Expected no data, got %s", state.Data)
	}
	if state.Loading {
		t.Error("Expected loading to be cleared after failure")
	}
}

func TestExecuteErrorsWithPartialDataClearsData(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"object":[]},"errors":[{"message":"depth exceeded"}]}`))
	})

	r := New(srv.URL, srv.Client())
	r.Execute(context.Background(), "{ object { id } }")

	state := r.State()
	if state.Err != "depth exceeded" {
		t.Errorf("Expected depth exceeded, got %q", state.Err)
	}
	if state.Data != nil {
		t.Errorf("Expected data to be cleared, got %s", state.Data)
	}
}

func TestExecuteTransportFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream unavailable", http.StatusBadGateway)
			},
		},
		{
			name: "body is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.handler)
			r := New(srv.URL, srv.Client())

			// a previous success must be replaced by the failure
			r.state.Data = json.RawMessage(`{"object":[]}`)
			r.Execute(context.Background(), "{ object { id } }")

			state := r.State()
			if state.Err == "" {
				t.Error("Expected an error message")
			}
			if state.Data != nil {
				t.Errorf("Expected data cleared, got %s", state.Data)
			}
			if state.Loading {
				t.Error("Expected loading cleared")
			}
		})
	}
}

func TestExecuteUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := New(url, nil)
	r.Execute(context.Background(), "{ object { id } }")

	if r.State().Err == "" {
		t.Error("Expected connection error to be surfaced")
	}
}

func TestExecuteSuccessClearsPreviousError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"object":[]}}`))
	})

	r := New(srv.URL, srv.Client())
	r.state.Err = "old failure"
	r.Execute(context.Background(), "{ object { id } }")

	state := r.State()
	if state.Err != "" {
		t.Errorf("Expected error cleared, got %q", state.Err)
	}
	if string(state.Data) != `{"object":[]}` {
		t.Errorf("Unexpected data %s", state.Data)
	}
}

func TestExecuteNullDataIsNotRun(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	r := New(srv.URL, srv.Client())
	r.Execute(context.Background(), "{ object { id } }")

	state := r.State()
	if state.Data != nil || state.Err != "" {
		t.Errorf("Expected empty state, got %+v", state)
	}
}

func TestExecuteWhileInFlightIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"data":{"object":[]}}`))
	})

	r := New(srv.URL, srv.Client())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Execute(context.Background(), "{ object { id } }")
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("First request never reached the server")
	}

	if !r.Loading() {
		t.Error("Expected loading while request is outstanding")
	}
	if r.Execute(context.Background(), "{ object { title } }") {
		t.Error("Expected second execute to be dropped")
	}
	if !r.Loading() {
		t.Error("Expected loading to remain true after dropped execute")
	}
	if r.Reset() {
		t.Error("Expected reset to be refused while loading")
	}

	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected exactly 1 request, got %d", calls.Load())
	}
	if r.Loading() {
		t.Error("Expected loading cleared once the request settled")
	}

	if !r.Execute(context.Background(), "{ object { id } }") {
		t.Error("Expected execute to run again after settling")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", calls.Load())
	}
}

func TestReset(t *testing.T) {
	r := New("", nil)
	if r.Endpoint != DefaultEndpoint {
		t.Errorf("Expected default endpoint, got %s", r.Endpoint)
	}

	r.state = State{Err: "boom", Data: json.RawMessage(`{}`)}
	if !r.Reset() {
		t.Fatal("Expected reset to succeed")
	}
	if state := r.State(); state.Err != "" || state.Data != nil {
		t.Errorf("Expected cleared state, got %+v", state)
	}
}

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestErrorMessageFallsBackToType(t *testing.T) {
	if got := errorMessage(emptyError{}); got != "runner.emptyError" {
		t.Errorf("Expected type name, got %q", got)
	}
	if got := errorMessage(&APIError{Messages: []string{"a", "b"}}); got != "a\nb" {
		t.Errorf("Expected joined messages, got %q", got)
	}
}

func TestExecuteSendsOnlyQuery(t *testing.T) {
	var gotBody string
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(`{"data":{"object":[]}}`))
	})

	r := New(srv.URL, srv.Client())
	r.Execute(context.Background(), "{ object { id } }")

	if expected := `{"query":"{ object { id } }"}`; gotBody != expected {
		t.Errorf("Expected body %s, got %s", expected, gotBody)
	}
}

func TestExecuteErrorsOnAnyStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "400 with GraphQL errors",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"x"},{"message":"y"}]}`,
			expected: "x\ny",
		},
		{
			name:     "500 with GraphQL errors",
			status:   http.StatusInternalServerError,
			body:     `{"data":null,"errors":[{"message":"Expected Int, found NaN"}]}`,
			expected: "Expected Int, found NaN",
		},
		{
			name:     "400 without errors falls back to status",
			status:   http.StatusBadRequest,
			body:     `bad request`,
			expected: "returned error 400: bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			r := New(srv.URL, srv.Client())
			r.Execute(context.Background(), "{ object { id } }")

			if state := r.State(); state.Err != tt.expected {
				t.Errorf("Expected error %q, got %q", tt.expected, state.Err)
			}
		})
	}
}

func TestExecuteSendsSubscriptionText(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Subscriptions are not supported"}]}`))
	})

	r := New(srv.URL, srv.Client())
	r.Execute(context.Background(), "subscription { objectAdded { id } }")

	if calls.Load() != 1 {
		t.Errorf("Expected editor text sent unchecked, got %d requests", calls.Load())
	}
	if state := r.State(); state.Err != "Subscriptions are not supported" {
		t.Errorf("Expected remote error, got %q", state.Err)
	}
}

func TestTryStart(t *testing.T) {
	r := New("http://example.invalid/", nil)

	if !r.TryStart() {
		t.Fatal("Expected first TryStart to succeed")
	}
	if r.TryStart() {
		t.Error("Expected TryStart to be refused while loading")
	}
	if r.Reset() {
		t.Error("Expected Reset to be refused while loading")
	}
	if !r.Loading() {
		t.Error("Expected runner to be loading")
	}
}
