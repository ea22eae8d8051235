package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/net"
)

var tracer = otel.Tracer("pod_fulfillment_v1/internal/provider")

// Credentials are the per-provider secrets and transport overrides from config.
type Credentials struct {
	Token      string
	Username   string
	Password   string
	ShopID     string
	RecipeID   string
	BaseURL    string // overrides the registry base URL (sandbox)
	Timeout    time.Duration
	RetryCount int
}

const defaultReadRetries = 3

// transport is the HTTP plumbing shared by every implementation: a retrying
// reader, a writer that only retries when creation is idempotent, one rate
// budget per provider, and a span per call.
type transport struct {
	slug       string
	idempotent bool
	reader     *resty.Client
	writer     *resty.Client
	endpoints  model.Endpoints
	vars       map[string]string
}

func newTransport(p *model.Provider, creds Credentials, d net.Dispatcher) *transport {
	base := p.APIBaseURL
	if creds.BaseURL != "" {
		base = creds.BaseURL
	}
	endpoints := p.Endpoints.Data()

	retries := creds.RetryCount
	if retries <= 0 {
		retries = defaultReadRetries
	}

	policy := net.Policy{
		BaseURL:           strings.TrimRight(base, "/"),
		Timeout:           creds.Timeout,
		RetryCount:        retries,
		RequestsPerMinute: p.RateLimitPerMinute,
		UserAgent:         "pod-fulfillment/1.0",
		Auth: net.Auth{
			Method:   p.AuthMethod,
			Token:    creds.Token,
			Header:   endpoints.AuthHeader,
			Username: creds.Username,
			Password: creds.Password,
		},
	}

	writePolicy := policy
	if !p.SupportsIdempotentCreate() {
		writePolicy.RetryCount = 0
	}

	return &transport{
		slug:       p.Slug,
		idempotent: p.SupportsIdempotentCreate(),
		reader:     d.Client(p.Slug+":read", p.Slug, policy),
		writer:     d.Client(p.Slug+":write", p.Slug, writePolicy),
		endpoints:  endpoints,
		vars: map[string]string{
			"shop_id":   creds.ShopID,
			"recipe_id": creds.RecipeID,
		},
	}
}

// path fills {name} placeholders; extra pairs come as key, value.
func (t *transport) path(tmpl string, pairs ...string) string {
	out := tmpl
	for k, v := range t.vars {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = strings.ReplaceAll(out, "{"+pairs[i]+"}", url.PathEscape(pairs[i+1]))
	}
	return out
}

// read issues a retryable GET.
func (t *transport) read(ctx context.Context, op, path string, query map[string]string, out interface{}) error {
	return t.do(ctx, op, t.reader, http.MethodGet, path, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
	}, out)
}

// quote issues a POST that is safe to retry (rate lookups do not create anything).
func (t *transport) quote(ctx context.Context, op, path string, query map[string]string, body, out interface{}) error {
	return t.do(ctx, op, t.reader, http.MethodPost, path, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
		r.SetBody(body)
	}, out)
}

// create issues an order-creation POST through the writer client.
func (t *transport) create(ctx context.Context, op, path string, query, headers map[string]string, body, out interface{}) error {
	return t.do(ctx, op, t.writer, http.MethodPost, path, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
		if len(headers) > 0 {
			r.SetHeaders(headers)
		}
		r.SetBody(body)
	}, out)
}

func (t *transport) do(ctx context.Context, op string, client *resty.Client, method, path string, build func(*resty.Request), out interface{}) error {
	ctx, span := tracer.Start(ctx, "provider."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.slug", t.slug),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	req := client.R().SetContext(ctx).ForceContentType("application/json")
	if out != nil {
		req.SetResult(out)
	}
	build(req)

	resp, err := req.Execute(method, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return &apperrors.ErrProviderUnavailable{Provider: t.slug, Err: err}
	}

	code := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", code))

	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, "unavailable")
		return &apperrors.ErrProviderUnavailable{Provider: t.slug, StatusCode: code}
	case resp.IsError():
		span.SetStatus(codes.Error, "rejected")
		return &apperrors.ErrProvider{Provider: t.slug, StatusCode: code, Message: snippet(resp.Body())}
	}
	return nil
}

// missingOrderID is the rejection for a create call that succeeded without
// returning an order id to track.
func (t *transport) missingOrderID(detail string) error {
	msg := "order created without id"
	if detail != "" {
		msg += " (" + detail + ")"
	}
	return &apperrors.ErrProvider{Provider: t.slug, StatusCode: http.StatusOK, Message: msg}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

// mapStatus looks a raw provider status up in table, case-insensitively.
// Unknown values map to "".
func mapStatus(table map[string]string, raw string) string {
	return table[strings.ToLower(strings.TrimSpace(raw))]
}

// splitName splits a recipient name for APIs that want first/last.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the timestamp layouts providers use; empty or unparsable yields nil.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
