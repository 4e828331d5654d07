// Package notify delivers policy document content to the backend over HTTP.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"policy-notifier/watch"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	DefaultURL     = "http://localhost:4000/live-update"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 256
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	StatusCode int
	Err        error
	Duration   time.Duration
}

func (o Outcome) OK() bool { return o.Err == nil }

// Recorder observes delivery outcomes.
type Recorder interface {
	Record(ev watch.ChangeEvent, o Outcome)
}

type Options struct {
	URL      string
	Timeout  time.Duration
	Recorder Recorder
	Logger   *slog.Logger
}

type payload struct {
	Content string `json:"content"`
}

// Notifier POSTs {"content": ...} to a configurable URL. It never retries.
type Notifier struct {
	cli      *client.Client
	url      atomic.Pointer[string]
	timeout  atomic.Int64
	recorder Recorder
	logger   *slog.Logger
}

func New(opts Options) (*Notifier, error) {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := client.NewClient(client.WithDialTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	n := &Notifier{cli: cli, recorder: opts.Recorder, logger: logger}
	n.SetURL(opts.URL)
	n.SetTimeout(opts.Timeout)
	return n, nil
}

// SetURL swaps the endpoint used by subsequent deliveries.
func (n *Notifier) SetURL(u string) { n.url.Store(&u) }

func (n *Notifier) URL() string { return *n.url.Load() }

func (n *Notifier) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	n.timeout.Store(int64(d))
}

func (n *Notifier) Timeout() time.Duration { return time.Duration(n.timeout.Load()) }

// Deliver sends content to the backend once and logs the result. Failures
// are reported in the Outcome, never returned as a panic or retried.
func (n *Notifier) Deliver(ctx context.Context, content string) Outcome {
	start := time.Now()
	code, err := n.post(ctx, content)
	o := Outcome{StatusCode: code, Err: err, Duration: time.Since(start)}

	endpoint := n.URL()
	if o.OK() {
		n.logger.Info("update sent to backend", "url", endpoint, "status", code, "took", o.Duration.String())
	} else {
		n.logger.Warn("error sending update to backend", "url", endpoint, "status", code, "error", err)
	}
	return o
}

// Handle adapts Deliver to a watch.Handler. Delivery failures have already
// been logged and are not passed back to the watcher.
func (n *Notifier) Handle(ctx context.Context, ev watch.ChangeEvent) error {
	o := n.Deliver(ctx, ev.Content)
	if n.recorder != nil {
		n.recorder.Record(ev, o)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, content string) (int, error) {
	body, err := sonic.Marshal(payload{Content: content})
	if err != nil {
		return 0, fmt.Errorf("encode body: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	endpoint := n.URL()
	req.SetRequestURI(endpoint)
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.SetBody(body)

	if err := n.cli.DoTimeout(ctx, req, resp, n.Timeout()); err != nil {
		return 0, fmt.Errorf("post %s: %w", endpoint, err)
	}
	code := resp.StatusCode()
	if code < 200 || code > 299 {
		b := resp.Body()
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return code, &StatusError{Code: code, Body: string(b)}
	}
	return code, nil
}
