package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/metrics"
	"golang.org/x/time/rate"
)

// Prefix is the path the relay is mounted under
const Prefix = "/ch-graphql"

// Config configures the relay
type Config struct {
	Upstream string
	// Rate is the sustained requests per second; zero or less disables limiting
	Rate  float64
	Burst int
}

// Relay forwards GraphQL POSTs to the upstream API so browsers never talk
// to the upstream host directly
type Relay struct {
	upstream *url.URL
	proxy    *httputil.ReverseProxy
	limiter  *rate.Limiter
}

// New creates a relay for cfg.Upstream
func New(cfg Config) (*Relay, error) {
	target, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL: %s", cfg.Upstream)
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
	}

	r := &Relay{
		upstream: target,
		limiter:  rate.NewLimiter(limit, burst),
	}
	r.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, Prefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			slog.Error("Relay request failed", "upstream", target.String(), "err", err)
			http.Error(w, "Upstream request failed", http.StatusBadGateway)
		},
	}

	return r, nil
}

// Upstream returns the URL requests are forwarded to
func (r *Relay) Upstream() string {
	return r.upstream.String()
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(rec.status)).Inc()
	}()

	// preflight requests are answered by the CORS middleware in front of the relay
	if req.Method != http.MethodPost {
		http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !r.limiter.Allow() {
		http.Error(rec, "Too many requests", http.StatusTooManyRequests)
		return
	}

	r.proxy.ServeHTTP(rec, req)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
