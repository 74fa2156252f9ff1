package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/restbench/restbench/internal/encoder"
	"github.com/restbench/restbench/internal/logging"
	"github.com/restbench/restbench/internal/types"
)

const (
	// DefaultTimeout applies when a descriptor carries no override.
	DefaultTimeout = 30 * time.Second

	// TestConnectionTimeout is the default probe timeout.
	TestConnectionTimeout = 5 * time.Second
)

// SendOptions parameterizes one dispatch. Headers and body are taken as
// already resolved; encoding happens inside Send.
type SendOptions struct {
	Method        string
	Headers       map[string]string
	Body          string
	IsJSON        bool
	QueryParams   []types.QueryParam
	TimeoutMs     int64
	TransactionID string
}

// Service performs HTTP calls with timeout and cooperative cancellation.
// It owns the only piece of shared mutable state in the engine: the
// registry of in-flight transactions.
type Service struct {
	client *http.Client
	log    logging.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewService creates a dispatch service using http.DefaultTransport.
// Per-call deadlines come from contexts, not a client-level timeout.
func NewService(log logging.Logger) *Service {
	return &Service{
		client:   &http.Client{},
		log:      logging.OrNoop(log),
		inflight: make(map[string]context.CancelFunc),
	}
}

// NewServiceWithClient creates a dispatch service around a caller-supplied
// client. Tests use this to install mock transports.
func NewServiceWithClient(client *http.Client, log logging.Logger) *Service {
	return &Service{
		client:   client,
		log:      logging.OrNoop(log),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Send performs one HTTP call and normalizes the response.
//
// Any response the server actually sent - including 4xx/5xx - comes back as
// a DispatchResult. Transport failures, timeouts and cancellations are
// returned as *Error with the elapsed time attached; no DispatchResult is
// produced for them.
func (s *Service) Send(ctx context.Context, rawURL string, opts SendOptions) (*types.DispatchResult, error) {
	start := time.Now()

	timeout := DefaultTimeout
	if opts.TimeoutMs > 0 {
		timeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}

	payload := encoder.Encode(opts.Headers, opts.Body, opts.IsJSON, s.log)

	finalURL, err := buildURL(rawURL, opts.QueryParams)
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: rawURL, ElapsedMs: elapsedMs(start), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The registry entry and the timeout both feed the same cancellation
	// signal; the flag is what tells them apart afterwards.
	var userCancelled atomic.Bool
	if opts.TransactionID != "" {
		s.register(opts.TransactionID, func() {
			userCancelled.Store(true)
			cancel()
		})
		defer s.unregister(opts.TransactionID)
	}

	var bodyReader io.Reader
	if len(payload.Body) > 0 {
		bodyReader = bytes.NewReader(payload.Body)
	}

	req, err := http.NewRequestWithContext(callCtx, strings.ToUpper(opts.Method), finalURL, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: finalURL, ElapsedMs: elapsedMs(start), Err: err}
	}
	for key, value := range payload.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.classify(err, finalURL, start, callCtx, &userCancelled)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.classify(err, finalURL, start, callCtx, &userCancelled)
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return &types.DispatchResult{
		Status:         resp.StatusCode,
		StatusText:     resp.Status,
		Headers:        headers,
		Body:           typedBody(resp.Header.Get("Content-Type"), raw),
		ResponseTimeMs: elapsedMs(start),
	}, nil
}

// classify maps a failed round trip to the dispatch error taxonomy.
func (s *Service) classify(err error, url string, start time.Time, ctx context.Context, userCancelled *atomic.Bool) *Error {
	kind := KindTransport
	switch {
	case userCancelled.Load():
		kind = KindCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		// Parent context cancelled without a transaction id.
		kind = KindCancelled
	}
	return &Error{Kind: kind, URL: url, ElapsedMs: elapsedMs(start), Err: err}
}

// Cancel aborts the in-flight dispatch registered under transactionID.
// Unknown or already-completed ids are a safe no-op returning false.
func (s *Service) Cancel(transactionID string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[transactionID]
	if ok {
		delete(s.inflight, transactionID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

// InFlight reports the number of registered transactions. Test hook.
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Service) register(transactionID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.inflight[transactionID] = cancel
	s.mu.Unlock()
}

// unregister removes a transaction after natural completion or abort.
// Deleting an already-removed entry is harmless, which is what makes a
// cancel racing a completion safe.
func (s *Service) unregister(transactionID string) {
	s.mu.Lock()
	delete(s.inflight, transactionID)
	s.mu.Unlock()
}

// TestConnection probes url and reports reachability. Any received status
// below 500 counts as reachable, client errors included; only transport
// failures and 5xx count against the host.
func (s *Service) TestConnection(ctx context.Context, rawURL string, timeoutMs int64) bool {
	timeout := TestConnectionTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 500
}

// buildURL appends the enabled query parameters to rawURL, preserving any
// query string already present.
func buildURL(rawURL string, params []types.QueryParam) (string, error) {
	enabled := make([]types.QueryParam, 0, len(params))
	for _, p := range params {
		if p.Enabled && p.Key != "" {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for _, p := range enabled {
		query.Add(p.Key, p.Value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// typedBody converts raw response bytes based on the response Content-Type:
// JSON is parsed (falling back to text when unparsable), text kept as a
// string, and everything else base64-encoded so it survives serialization.
func typedBody(contentType string, raw []byte) any {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/json"):
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			return parsed
		}
		return string(raw)
	case strings.Contains(ct, "text/"):
		return string(raw)
	case len(raw) == 0:
		return ""
	default:
		return base64.StdEncoding.EncodeToString(raw)
	}
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
