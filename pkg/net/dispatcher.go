package net

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Policy describes how requests to one upstream host are shaped.
type Policy struct {
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	RetryWait         time.Duration
	RetryMaxWait      time.Duration
	RequestsPerMinute int
	Auth              Auth
	UserAgent         string
}

// Dispatcher hands out configured HTTP clients (shared component).
type Dispatcher interface {
	// Client returns the client for key, building it on first use.
	// Clients built for the same limiterKey share one rate budget.
	Client(key, limiterKey string, p Policy) *resty.Client

	// Forget drops cached clients so the next call rebuilds them (after a registry reload).
	Forget(keys ...string)
}

// restyDispatcher is the Dispatcher implementation
// it is private; callers get it through NewDispatcher
type restyDispatcher struct {
	clientCache  sync.Map // key -> *resty.Client
	limiterCache sync.Map // limiterKey -> *rate.Limiter
	transport    http.RoundTripper
}

var _ Dispatcher = (*restyDispatcher)(nil)

func NewDispatcher() Dispatcher {
	return &restyDispatcher{
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func (d *restyDispatcher) Client(key, limiterKey string, p Policy) *resty.Client {
	if val, ok := d.clientCache.Load(key); ok {
		return val.(*resty.Client)
	}

	client := d.build(limiterKey, p)

	// LoadOrStore keeps concurrent first calls from racing two clients in
	actual, _ := d.clientCache.LoadOrStore(key, client)
	return actual.(*resty.Client)
}

func (d *restyDispatcher) Forget(keys ...string) {
	for _, k := range keys {
		d.clientCache.Delete(k)
		d.limiterCache.Delete(k)
	}
}

func (d *restyDispatcher) build(limiterKey string, p Policy) *resty.Client {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTransport(d.transport).
		SetBaseURL(p.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	if p.UserAgent != "" {
		client.SetHeader("User-Agent", p.UserAgent)
	}

	if p.RetryCount > 0 {
		wait := p.RetryWait
		if wait <= 0 {
			wait = 500 * time.Millisecond
		}
		maxWait := p.RetryMaxWait
		if maxWait <= 0 {
			maxWait = 5 * time.Second
		}
		client.SetRetryCount(p.RetryCount).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(Retryable)
	}

	if limiter := d.limiter(limiterKey, p.RequestsPerMinute); limiter != nil {
		// runs before every attempt, retries included
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}

	ApplyAuth(client, p.Auth)
	return client
}

func (d *restyDispatcher) limiter(key string, perMinute int) *rate.Limiter {
	if key == "" || perMinute <= 0 {
		return nil
	}
	if val, ok := d.limiterCache.Load(key); ok {
		return val.(*rate.Limiter)
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	actual, _ := d.limiterCache.LoadOrStore(key, l)
	return actual.(*rate.Limiter)
}

// Retryable reports whether a failed attempt is worth repeating:
// network errors, 429 and 5xx. Cancellation is never retried.
func Retryable(resp *resty.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		// caller deadline passed: stop; a per-attempt client timeout is retried
		if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
			return false
		}
		return true
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
