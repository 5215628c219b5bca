package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if req.Body != nil {
		_, _ = io.ReadAll(req.Body)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &scriptedTransport{errs: []error{&net.OpError{Op: "dial", Err: errors.New("refused")}}}
	rt := &retryTransport{base: base, maxRetries: 2, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/getMe", strings.NewReader("a=1"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if base.calls != 2 {
		t.Fatalf("calls = %d, want 2", base.calls)
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	want := errors.New("tls: bad certificate")
	base := &scriptedTransport{errs: []error{want}}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestBuildHTTPClientTimeout(t *testing.T) {
	c := BuildHTTPClient(HTTPOptions{Timeout: 5 * time.Second}, 10*time.Second)
	if c.Timeout != 15*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}
}
