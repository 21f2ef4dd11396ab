// Package submit sends a pipeline to the external validation service and
// turns its answer into a user-facing outcome.
//
// The wire contract is a form-encoded POST with one field, "pipeline", whose
// value is the JSON text of {nodes, edges}. The service answers with
// {"num_nodes": int, "num_edges": int, "is_dag": bool}; extra fields are
// ignored and a missing one is a MALFORMED_RESPONSE.
//
// [Client.Submit] issues exactly one request per call. It never retries and
// never de-duplicates concurrent calls. An empty pipeline fails with
// EMPTY_GRAPH before any network traffic.
//
// [Dispatcher] runs submissions in the background against a snapshot taken at
// dispatch time and delivers the [Outcome] to a [Surface] unless the surface
// has been closed in the meantime.
package submit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pipewright/pkg/buildinfo"
	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/observability"
)

// DefaultEndpoint is where the validation service listens by default.
const DefaultEndpoint = "http://localhost:8000/pipelines/parse"

// FormField is the form field carrying the pipeline JSON.
const FormField = "pipeline"

// RequestIDHeader carries the submission id.
const RequestIDHeader = "X-Request-ID"

const maxResponseBytes = 1 << 20

// Result is a successful service answer.
type Result struct {
	NumNodes     int    `json:"num_nodes"`
	NumEdges     int    `json:"num_edges"`
	IsDAG        bool   `json:"is_dag"`
	SubmissionID string `json:"-"`
}

// Client talks to the validation service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded, so a hung
// service keeps the submission pending until the transport gives up.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client posting to endpoint, or DefaultEndpoint if empty.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the service URL.
func (c *Client) Endpoint() string { return c.endpoint }

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID attaches the submission id to use for requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Submit sends p and returns the service's answer.
//
// Errors carry one of EMPTY_GRAPH, SERVICE_UNREACHABLE, HTTP_STATUS or
// MALFORMED_RESPONSE.
func (c *Client) Submit(ctx context.Context, p graph.Pipeline) (Result, error) {
	if len(p.Nodes) == 0 {
		return Result{}, errors.New(errors.ErrCodeEmptyGraph, "pipeline has no nodes")
	}

	body, err := graph.Marshal(p)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "encode pipeline")
	}
	form := url.Values{FormField: {string(body)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeServiceUnreachable, err, "build request for %s", c.endpoint)
	}
	id := requestIDFromContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set(RequestIDHeader, id)

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	c.logger.Debug("submitting pipeline", "id", id, "nodes", len(p.Nodes), "edges", len(p.Edges), "endpoint", c.endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return Result{}, errors.Wrap(errors.ErrCodeServiceUnreachable, err, "post %s", c.endpoint)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return Result{}, errors.Wrap(errors.ErrCodeHTTPStatus,
			&errors.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status},
			"validation service rejected the request")
	}

	res, err := decodeResult(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, err
	}
	res.SubmissionID = id
	return res, nil
}

func decodeResult(r io.Reader) (Result, error) {
	var raw struct {
		NumNodes *int  `json:"num_nodes"`
		NumEdges *int  `json:"num_edges"`
		IsDAG    *bool `json:"is_dag"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeMalformedResponse, err, "decode response")
	}

	var missing []string
	if raw.NumNodes == nil {
		missing = append(missing, "num_nodes")
	}
	if raw.NumEdges == nil {
		missing = append(missing, "num_edges")
	}
	if raw.IsDAG == nil {
		missing = append(missing, "is_dag")
	}
	if len(missing) > 0 {
		return Result{}, errors.New(errors.ErrCodeMalformedResponse, "response missing %s", strings.Join(missing, ", "))
	}
	return Result{NumNodes: *raw.NumNodes, NumEdges: *raw.NumEdges, IsDAG: *raw.IsDAG}, nil
}
