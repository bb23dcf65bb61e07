package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/tidyops/fieldwork/internal/observability/notify"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// WebhookSink describes a configurable outbound delivery target for
// automation events. Fields maps outbound body keys to JMESPath expressions
// evaluated against the event payload, so operators can shape the body for
// whatever system receives it without code changes.
type WebhookSink struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Headers  map[string]string `json:"headers,omitempty"`
	Fields   map[string]string `json:"fields"`
	OkStatus int               `json:"ok_status,omitempty"`
}

// PreparedWebhookRequest is the result of projecting an event through a sink config.
type PreparedWebhookRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	OkStatus int
}

// WebhookSinkServiceOptions groups dependencies for WebhookSinkService.
type WebhookSinkServiceOptions struct {
	Sink      WebhookSink       // Required: sink configuration
	Evaluator JMESPathEvaluator // Optional: defaults to the go-jmespath library
	Client    *http.Client      // Optional: defaults to a 10s-timeout client
	Logger    *slog.Logger      // Optional: structured logger
}

// WebhookSinkService projects automation events into outbound HTTP requests.
type WebhookSinkService struct {
	sink   WebhookSink
	jems   JMESPathEvaluator
	client *http.Client
	logger *slog.Logger
}

var _ notify.OverdueNotifier = (*WebhookSinkService)(nil)

// NewWebhookSinkService constructs a new service, validating the sink config.
func NewWebhookSinkService(opts WebhookSinkServiceOptions) (*WebhookSinkService, error) {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	if err := validateSink(opts.Sink, jems); err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "webhook_sink")
	}
	return &WebhookSinkService{sink: opts.Sink, jems: jems, client: client, logger: logger}, nil
}

// Prepare evaluates the sink's field expressions against the payload and
// assembles the outbound request.
func (s *WebhookSinkService) Prepare(payload any) (PreparedWebhookRequest, error) {
	body := make(map[string]any, len(s.sink.Fields))
	for key, expr := range s.sink.Fields {
		val, err := s.jems.Evaluate(expr, payload)
		if err != nil {
			return PreparedWebhookRequest{}, fmt.Errorf("evaluate field %q: %w", key, err)
		}
		body[key] = val
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return PreparedWebhookRequest{}, fmt.Errorf("marshal sink body: %w", err)
	}

	method := s.sink.Method
	if method == "" {
		method = http.MethodPost
	}
	okStatus := s.sink.OkStatus
	if okStatus == 0 {
		okStatus = http.StatusOK
	}

	return PreparedWebhookRequest{
		Method:   method,
		URL:      s.sink.URL,
		Headers:  s.sink.Headers,
		Body:     raw,
		OkStatus: okStatus,
	}, nil
}

// Deliver sends the prepared request and enforces the expected status.
func (s *WebhookSinkService) Deliver(ctx context.Context, prepared PreparedWebhookRequest) error {
	req, err := http.NewRequestWithContext(ctx, prepared.Method, prepared.URL, bytes.NewReader(prepared.Body))
	if err != nil {
		return fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range prepared.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to sink: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != prepared.OkStatus {
		return fmt.Errorf("sink returned %d, want %d", resp.StatusCode, prepared.OkStatus)
	}
	return nil
}

// NotifyOverdueApprovals projects a sweep summary through the sink.
// Best-effort: failures are logged, never returned to the sweep.
func (s *WebhookSinkService) NotifyOverdueApprovals(ctx context.Context, payload notify.OverdueApprovalsPayload) {
	// Round-trip through JSON so JMESPath sees plain maps/slices.
	doc, err := toDocument(map[string]any{
		"flagged_job_ids": payload.FlaggedJobIDs,
		"errors":          payload.Errors,
		"swept_at":        payload.SweptAt.Format(time.RFC3339),
		"flagged_count":   len(payload.FlaggedJobIDs),
	})
	if err != nil {
		s.logFailure(ctx, err)
		return
	}

	prepared, err := s.Prepare(doc)
	if err != nil {
		s.logFailure(ctx, err)
		return
	}
	if err := s.Deliver(ctx, prepared); err != nil {
		s.logFailure(ctx, err)
	}
}

func (s *WebhookSinkService) logFailure(ctx context.Context, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "webhook sink delivery failed", "error", err)
	}
}

func validateSink(sink WebhookSink, jems JMESPathEvaluator) error {
	if strings.TrimSpace(sink.URL) == "" {
		return errors.New("sink url is required")
	}
	parsed, err := url.Parse(sink.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("sink url %q is not a valid http(s) url", sink.URL)
	}
	for key, expr := range sink.Fields {
		if validateErr := jems.Validate(expr); validateErr != nil {
			return fmt.Errorf("field %q has invalid expression: %w", key, validateErr)
		}
	}
	return nil
}

func toDocument(in any) (any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return doc, nil
}
