package overpass

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

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/relation-cli/internal/resilience"
)

// ProberOptions configures the endpoint prober.
type ProberOptions struct {
	Endpoints []string
	UserAgent string
	Timeout   time.Duration
	Pause     time.Duration

	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client

	// Progress receives one human-readable line per attempt. Optional.
	Progress io.Writer
}

// Result is a successful answer from one endpoint.
type Result struct {
	Endpoint string
	Response *Response
	Body     []byte
}

// Prober sends one query to a fixed, ordered list of Overpass endpoints and
// returns the first valid answer.
type Prober struct {
	client    *http.Client
	endpoints []string
	userAgent string
	pause     time.Duration
	progress  io.Writer
}

// NewProber creates a Prober with the given options.
func NewProber(opts ProberOptions) *Prober {
	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "relation-cli/1.0"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Prober{
		client:    client,
		endpoints: append([]string(nil), opts.Endpoints...),
		userAgent: opts.UserAgent,
		pause:     opts.Pause,
		progress:  opts.Progress,
	}
}

// Endpoints returns the candidate URLs in the order they are tried.
func (p *Prober) Endpoints() []string {
	return append([]string(nil), p.endpoints...)
}

// Query tries every endpoint once, in order, pausing after each failure.
// It fails only when all endpoints failed or ctx was cancelled.
func (p *Prober) Query(ctx context.Context, query string) (*Result, error) {
	logFailure := resilience.FailureLogger("overpass")
	cfg := resilience.FallbackConfig{
		Pause: p.pause,
		OnFailure: func(attempt int, endpoint string, err error) {
			p.printf("Failed: %v\n", err)
			logFailure(attempt, endpoint, err)
		},
	}

	res, _, err := resilience.FirstSuccess(ctx, p.endpoints, cfg, func(ctx context.Context, endpoint string) (*Result, error) {
		p.printf("Trying %s...\n", endpoint)
		return p.post(ctx, endpoint, query)
	})
	if err != nil {
		return nil, eris.Wrap(err, "overpass: query")
	}

	p.printf("Success!\n")

	if res.Response.Remark != "" {
		zap.L().Warn("overpass: server remark",
			zap.String("endpoint", res.Endpoint),
			zap.String("remark", res.Response.Remark),
		)
	}

	return res, nil
}

func (p *Prober) post(ctx context.Context, endpoint, query string) (*Result, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: post %s", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: read body from %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &resilience.StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	var decoded Response
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&decoded); err != nil {
		return nil, eris.Wrapf(err, "overpass: decode response from %s", endpoint)
	}

	zap.L().Info("overpass: query succeeded",
		zap.String("endpoint", endpoint),
		zap.Int("elements", len(decoded.Elements)),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Endpoint: endpoint, Response: &decoded, Body: body}, nil
}

func (p *Prober) printf(format string, args ...any) {
	if p.progress != nil {
		fmt.Fprintf(p.progress, format, args...)
	}
}
