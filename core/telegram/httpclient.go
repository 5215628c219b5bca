package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/quizbot/core/telegram/netutil"
)

// HTTPOptions tunes the client used for Bot API calls. Zero fields take defaults.
type HTTPOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	return o
}

// BuildHTTPClient returns an HTTP client that retries transient network failures.
// The long-poll timeout is added on top of the request timeout so getUpdates
// is never cut short by the client.
func BuildHTTPClient(opts HTTPOptions, longPoll time.Duration) *http.Client {
	opts = opts.withDefaults()
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: opts.Timeout + longPoll,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: opts.Retries,
			backoff:    opts.RetryBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		current := req
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			current = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				current.Body = body
			}
		}

		resp, err := base.RoundTrip(current)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == t.maxRetries {
			break
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt+1))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
