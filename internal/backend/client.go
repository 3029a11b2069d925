// Package backend is the HTTP client for the Scout drafting backend.
//
// Every response is decoded into wire structs and validated into the typed
// values in internal/types before it leaves this package, so callers never
// see half-populated records.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/daviddao/scout/internal/logging"
	"github.com/daviddao/scout/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL           string
	TokenSource       oauth2.TokenSource
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger

	// HTTPClient is the base transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client talks to the backend over HTTP/JSON.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	if opts.TokenSource != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, opts.TokenSource)
	}
	if opts.Timeout > 0 {
		c := *hc
		c.Timeout = opts.Timeout
		hc = &c
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		log:     logging.OrNop(opts.Logger),
	}, nil
}

type reqConfig struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// do sends a request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, cfg reqConfig) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := *c.base
	u.RawPath = c.base.EscapedPath() + cfg.Path
	u.Path, _ = url.PathUnescape(u.RawPath)
	if len(cfg.Query) > 0 {
		u.RawQuery = cfg.Query.Encode()
	}

	var body io.Reader
	if cfg.Body != nil {
		data, err := json.Marshal(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if cfg.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s %s: %w", cfg.Method, cfg.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", cfg.Path, err)
	}

	c.log.Debug("backend request",
		zap.String("method", cfg.Method),
		zap.String("path", cfg.Path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(cfg.Method, cfg.Path, resp.StatusCode, data)
	}
	return data, nil
}

// request sends a request and decodes the response into a wire value.
func request[T any](ctx context.Context, c *Client, cfg reqConfig) (*T, error) {
	data, err := c.do(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var t T
	if len(bytes.TrimSpace(data)) == 0 {
		return &t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &DecodeError{What: cfg.Path, Err: err}
	}
	return &t, nil
}

func targetPath(id, action string) string {
	return "/api/targets/" + url.PathEscape(id) + "/" + action
}

// Queue returns the day's candidates with their embedded draft snapshots.
// Rows that fail validation are skipped and logged; a payload that is not a
// JSON array fails the whole call.
func (c *Client) Queue(ctx context.Context) ([]types.Candidate, error) {
	raw, err := request[[]json.RawMessage](ctx, c, reqConfig{Method: http.MethodGet, Path: "/api/briefing/queue"})
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(*raw))
	for i, row := range *raw {
		cand, err := decodeCandidate(row)
		if err != nil {
			c.log.Warn("skipping invalid queue row", zap.Int("index", i), zap.Error(err))
			continue
		}
		candidates = append(candidates, *cand)
	}
	return candidates, nil
}

// Approve queues the candidate's draft for sending and returns the status
// the backend reports.
func (c *Client) Approve(ctx context.Context, id string) (types.Status, error) {
	resp, err := request[wireStatusResponse](ctx, c, reqConfig{Method: http.MethodPost, Path: targetPath(id, "approve")})
	if err != nil {
		return "", err
	}
	status := types.Status(resp.Status)
	switch {
	case status == "":
		return types.StatusSent, nil
	case !status.IsValid():
		c.log.Warn("approve returned unknown status", zap.String("id", id), zap.String("status", resp.Status))
		return types.StatusSent, nil
	}
	return status, nil
}

// Dismiss removes the candidate from outreach.
func (c *Client) Dismiss(ctx context.Context, id, reason string) error {
	_, err := c.do(ctx, reqConfig{
		Method: http.MethodPost,
		Path:   targetPath(id, "dismiss"),
		Body:   wireReason{Reason: reason},
	})
	return err
}

// Pause holds the candidate back from sending.
func (c *Client) Pause(ctx context.Context, id, reason string) error {
	_, err := c.do(ctx, reqConfig{
		Method: http.MethodPost,
		Path:   targetPath(id, "pause"),
		Body:   wireReason{Reason: reason},
	})
	return err
}

// SaveDraft persists an edited subject and body.
func (c *Client) SaveDraft(ctx context.Context, id, subject, body string) error {
	_, err := c.do(ctx, reqConfig{
		Method: http.MethodPut,
		Path:   targetPath(id, "draft"),
		Body:   wireDraftUpdate{Subject: subject, Body: body},
	})
	return err
}

// Regenerate asks the backend for a fresh draft.
func (c *Client) Regenerate(ctx context.Context, id string) (*types.Draft, error) {
	w, err := request[wireDraft](ctx, c, reqConfig{Method: http.MethodPost, Path: targetPath(id, "regenerate")})
	if err != nil {
		return nil, err
	}
	return w.validate("regenerate")
}

// RegenerateWithFeedback asks for a new draft guided by reviewer comments on
// the current one.
func (c *Client) RegenerateWithFeedback(ctx context.Context, id string, current types.Draft, comments string) (*types.Draft, error) {
	w, err := request[wireDraft](ctx, c, reqConfig{
		Method: http.MethodPost,
		Path:   targetPath(id, "regenerate"),
		Body:   wireFeedback{CurrentDraft: current, Comments: comments},
	})
	if err != nil {
		return nil, err
	}
	return w.validate("regenerate")
}

// Dossier fetches extended detail for a candidate. The call honours ctx
// cancellation.
func (c *Client) Dossier(ctx context.Context, id string) (*types.Dossier, error) {
	w, err := request[wireDossier](ctx, c, reqConfig{Method: http.MethodGet, Path: targetPath(id, "dossier")})
	if err != nil {
		return nil, err
	}
	return w.validate(id)
}

// Proposal fetches the AI signal proposal for a candidate.
func (c *Client) Proposal(ctx context.Context, candidateID string) (*types.SignalProposal, error) {
	w, err := request[wireProposal](ctx, c, reqConfig{
		Method: http.MethodGet,
		Path:   "/api/signals/proposal",
		Query:  url.Values{"candidate_id": {candidateID}},
	})
	if err != nil {
		return nil, err
	}
	return w.validate(candidateID)
}

// OutreachStatus reports whether approvals can currently be sent.
func (c *Client) OutreachStatus(ctx context.Context) (*types.OutreachStatus, error) {
	w, err := request[wireOutreach](ctx, c, reqConfig{Method: http.MethodGet, Path: "/api/outreach/status"})
	if err != nil {
		return nil, err
	}
	return w.validate()
}
