package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Khan/genqlient/graphql"
	"github.com/lehigh-university-libraries/chsandbox/internal/metrics"
)

// DefaultEndpoint is the Cooper Hewitt GraphQL API
const DefaultEndpoint = "https://api.cooperhewitt.org/"

// State is the observable outcome of the most recent execution
type State struct {
	Loading bool            `json:"loading"`
	Err     string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// APIError carries the messages of a non-empty GraphQL errors list
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Runner executes queries against a GraphQL endpoint, one at a time
type Runner struct {
	Endpoint string

	client graphql.Client
	mu     sync.Mutex
	state  State
}

// New creates a runner for endpoint. A nil httpClient means http.DefaultClient.
func New(endpoint string, httpClient graphql.Doer) *Runner {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Runner{
		Endpoint: endpoint,
		client:   &client{endpoint: endpoint, doer: httpClient},
	}
}

// NewHTTPClient builds the client used for upstream requests.
// A zero timeout waits for the request to settle however long it takes.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Execute sends query and records the outcome.
// It returns false, without sending anything, while a previous call is
// still outstanding.
func (r *Runner) Execute(ctx context.Context, query string) bool {
	if !r.TryStart() {
		return false
	}
	r.Run(ctx, query)
	return true
}

// TryStart marks the runner as loading. It returns false when a request is
// already outstanding. A successful TryStart must be followed by Run.
func (r *Runner) TryStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Loading {
		metrics.QueriesTotal.WithLabelValues("dropped").Inc()
		slog.Debug("Query already in flight, dropping execute", "endpoint", r.Endpoint)
		return false
	}
	r.state.Loading = true
	r.state.Err = ""
	return true
}

// Run sends query for a runner put into loading by TryStart and records
// the outcome.
func (r *Runner) Run(ctx context.Context, query string) {
	var (
		data json.RawMessage
		err  error
	)
	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state.Loading = false
		if err != nil {
			r.state.Data = nil
			r.state.Err = errorMessage(err)
			return
		}
		r.state.Data = data
		r.state.Err = ""
	}()

	data, err = r.request(ctx, query)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		slog.Info("Query failed", "endpoint", r.Endpoint, "err", err)
	} else {
		metrics.QueriesTotal.WithLabelValues("ok").Inc()
		slog.Debug("Query succeeded", "endpoint", r.Endpoint, "bytes", len(data))
	}
}

func (r *Runner) request(ctx context.Context, query string) (json.RawMessage, error) {
	var data json.RawMessage
	req := &graphql.Request{Query: query}
	resp := &graphql.Response{Data: &data}

	start := time.Now()
	err := r.client.MakeRequest(ctx, req, resp)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	if len(resp.Errors) > 0 {
		apiErr := &APIError{Messages: make([]string, 0, len(resp.Errors))}
		for _, e := range resp.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return nil, apiErr
	}
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		data = nil
	}

	return data, nil
}

// Reset clears the last result and error. It is refused while loading.
func (r *Runner) Reset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Loading {
		return false
	}
	r.state = State{}
	return true
}

// Loading reports whether a request is outstanding
func (r *Runner) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Loading
}

// State returns a copy of the current state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T", err)
}

func isNull(data json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "null"
}
