package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/donatebot/core/telegram/netutil"
)

const (
	dialTimeout           = 5 * time.Second
	keepAlive             = 30 * time.Second
	tlsHandshakeTimeout   = 5 * time.Second
	idleConnTimeout       = 30 * time.Second
	responseHeaderTimeout = 5 * time.Second
	// clientTimeout must exceed the long-poll timeout.
	clientTimeout = 30 * time.Second
	redialBackoff = 500 * time.Millisecond
)

// BuildHTTPClient returns the client used for Bot API calls. With retries > 0
// a request whose connection could not be established is redialed up to
// retries times. Requests that reached Telegram are never resent, so an
// invoice or message is not duplicated by a retry.
func BuildHTTPClient(retries int) *http.Client {
	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if retries > 0 {
		rt = &redialTransport{base: rt, retries: retries, backoff: redialBackoff}
	}
	return &http.Client{Timeout: clientTimeout, Transport: rt}
}

type redialTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *redialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.NotSent(err); attempt++ {
		if req.Body != nil && req.GetBody == nil {
			return nil, err
		}
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
