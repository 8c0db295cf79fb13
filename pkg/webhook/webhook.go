// Package webhook publishes submitted inspection records to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppecheck/ppecheck/pkg/logging"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// EventType names the notification sent for a record.
type EventType string

const (
	EventSubmitted           EventType = "inspection.submitted"
	EventSubmittedWithIssues EventType = "inspection.submitted_with_issues"
)

// Header names set on every delivery.
const (
	HeaderEvent     = "X-Ppecheck-Event"
	HeaderSignature = "X-Ppecheck-Signature"
	HeaderDelivery  = "X-Ppecheck-Delivery"
)

// ErrClosed is returned when publishing to a closed Publisher.
var ErrClosed = errors.New("webhook publisher closed")

// EventFor maps a record outcome to its event type.
func EventFor(o model.Outcome) EventType {
	if o == model.OutcomeSuccessWithIssues {
		return EventSubmittedWithIssues
	}
	return EventSubmitted
}

// Event is the JSON body posted to each hook.
type Event struct {
	Event       EventType               `json:"event"`
	Timestamp   time.Time               `json:"timestamp"`
	WorkspaceID string                  `json:"workspace_id,omitempty"`
	Record      *model.InspectionRecord `json:"record"`
	FailedItems []model.ItemRef         `json:"failed_items,omitempty"`
}

// Hook is a single endpoint. An empty Events list subscribes to everything.
type Hook struct {
	URL     string
	Secret  string
	Events  []EventType
	Enabled bool
}

func (h Hook) wants(e EventType) bool {
	if !h.Enabled {
		return false
	}
	if len(h.Events) == 0 {
		return true
	}
	for _, want := range h.Events {
		if want == e || want == "*" {
			return true
		}
	}
	return false
}

// Config configures a Publisher.
type Config struct {
	Hooks       []Hook
	WorkspaceID string
	MaxRetries  int
	RetryDelay  time.Duration
	// QueueSize > 0 makes Publish enqueue and return immediately.
	QueueSize int
	Timeout   time.Duration
}

// Publisher posts records to the configured hooks. It implements
// adapter.RecordSink.
type Publisher struct {
	cfg  Config
	http *http.Client
	log  *logging.Logger
	now  func() time.Time

	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(p *Publisher) { p.http = c } }

// WithLogger sets the logger used for asynchronous delivery failures.
func WithLogger(l *logging.Logger) Option { return func(p *Publisher) { p.log = l } }

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option { return func(p *Publisher) { p.now = now } }

// NewPublisher creates a publisher. With a queue configured, a background
// worker runs until Close.
func NewPublisher(cfg Config, opts ...Option) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		log:    logging.Global(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(p)
	}
	if cfg.QueueSize > 0 {
		p.queue = make(chan Event, cfg.QueueSize)
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Publish notifies every hook subscribed to the record's event. In
// synchronous mode all deliveries are attempted and their errors joined.
func (p *Publisher) Publish(ctx context.Context, rec *model.InspectionRecord) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	ev := Event{
		Event:       EventFor(rec.Outcome),
		Timestamp:   p.now().UTC(),
		WorkspaceID: p.cfg.WorkspaceID,
		Record:      rec,
		FailedItems: rec.FailedItems(),
	}
	if len(p.hooksFor(ev.Event)) == 0 {
		return nil
	}

	if p.queue != nil {
		select {
		case p.queue <- ev:
		default:
			p.log.Warn("webhook queue full, dropping event", map[string]any{
				"event": string(ev.Event), "record_id": string(rec.RecordID),
			})
		}
		return nil
	}
	return p.deliver(ctx, ev)
}

// Close stops accepting events, drains the queue and waits for in-flight
// deliveries.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	return nil
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for ev := range p.queue {
		if err := p.deliver(p.ctx, ev); err != nil {
			p.log.ErrorErr("webhook delivery failed", err, map[string]any{
				"event": string(ev.Event), "record_id": string(ev.Record.RecordID),
			})
		}
	}
}

func (p *Publisher) hooksFor(e EventType) []Hook {
	var hooks []Hook
	for _, h := range p.cfg.Hooks {
		if h.wants(e) {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

func (p *Publisher) deliver(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	hooks := p.hooksFor(ev.Event)
	errs := make([]error, len(hooks))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range hooks {
		g.Go(func() error {
			if err := p.send(gctx, h, ev, payload); err != nil {
				errs[i] = fmt.Errorf("%s: %w", h.URL, err)
			}
			// Failures are collected per hook so one endpoint never cancels another.
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (p *Publisher) send(ctx context.Context, h Hook, ev Event, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.RetryDelay):
			}
		}

		req, err := p.newRequest(ctx, h, ev, payload)
		if err != nil {
			return err
		}
		resp, err := p.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.log.Debug("webhook delivered", map[string]any{
				"url": h.URL, "event": string(ev.Event), "attempt": attempt + 1,
			})
			return nil
		}
		lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		// Client errors other than throttling will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}
	}
	return lastErr
}

func (p *Publisher) newRequest(ctx context.Context, h Hook, ev Event, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ppecheck-webhook/1.0")
	req.Header.Set(HeaderEvent, string(ev.Event))
	req.Header.Set(HeaderDelivery, string(ev.Record.RecordID))
	if h.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, h.Secret))
	}
	return req, nil
}

// Sign returns the "sha256=<hex>" HMAC of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header produced by Sign.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
