package tor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 2 * time.Minute
	maxSocks5Auth  = 255
)

var (
	ErrMissingBaseURI = fmt.Errorf("missing base uri resolver")
	ErrEmptyBaseURI   = fmt.Errorf("base uri resolver returned an empty uri")
)

// Content is the optional body of a request.
type Content struct {
	Type string
	Data []byte
}

// ClientOpts holds the configuration of the transport client. An empty
// Socks5Addr makes the client connect directly.
type ClientOpts struct {
	Socks5Addr     string
	IsolationTag   string
	Timeout        time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func (o ClientOpts) validate() error {
	if len(o.Socks5Addr) > 0 {
		if _, _, err := net.SplitHostPort(o.Socks5Addr); err != nil {
			return fmt.Errorf("invalid socks5 address %s: %w", o.Socks5Addr, err)
		}
	}
	if len(o.IsolationTag) > maxSocks5Auth {
		return fmt.Errorf("isolation tag must be at most %d bytes", maxSocks5Auth)
	}
	if o.Timeout < 0 || o.RetryBaseDelay < 0 || o.RetryMaxDelay < 0 {
		return fmt.Errorf("timeout and retry delays must not be negative")
	}
	return nil
}

func (o ClientOpts) withDefaults() ClientOpts {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.RetryMaxDelay == 0 {
		o.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if o.RetryMaxDelay < o.RetryBaseDelay {
		o.RetryMaxDelay = o.RetryBaseDelay
	}
	return o
}

// Client sends HTTP requests to a backend, optionally through a Tor SOCKS5
// proxy, retrying on transient network failures.
type Client struct {
	baseURI func() string
	opts    ClientOpts
	http    *http.Client

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

// NewClient returns a new transport client. The base uri resolver is invoked
// for every request so that the target can change at runtime (ie. when Tor is
// toggled on or off).
func NewClient(baseURI func() string, opts ClientOpts) (*Client, error) {
	if baseURI == nil {
		return nil, ErrMissingBaseURI
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	if len(opts.Socks5Addr) > 0 {
		dialFn, err := newSocks5Dialer(opts.Socks5Addr, opts.IsolationTag)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dialFn
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transport: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("transport: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &Client{
		baseURI: baseURI,
		opts:    opts,
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		log:  logFn,
		warn: warnFn,
	}, nil
}

// SendAndRetry sends the request and retries it up to maxRetries times as
// long as it fails for transient reasons. The returned response may have a
// status different from expectedStatus, the caller is in charge of handling
// it and of closing the body.
func (c *Client) SendAndRetry(
	ctx context.Context, method string, expectedStatus int, path string,
	maxRetries int, content *Content,
) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	attempts := maxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if attempt > 0 {
			delay := backoffDelay(
				c.opts.RetryBaseDelay, c.opts.RetryMaxDelay, DefaultJitter, attempt-1,
			)
			c.log(
				"retrying %s %s in %s (attempt %d/%d)",
				method, path, delay, attempt+1, attempts,
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := c.send(ctx, method, path, content)
		if err == nil {
			requestAttempts.WithLabelValues(outcomeOK).Inc()
			if resp.StatusCode != expectedStatus {
				c.log(
					"%s %s returned status %d, expected %d",
					method, path, resp.StatusCode, expectedStatus,
				)
			}
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !isTransientError(err) {
			requestAttempts.WithLabelValues(outcomeFailure).Inc()
			return nil, err
		}

		requestAttempts.WithLabelValues(outcomeTransient).Inc()
		c.warn(err, "attempt %d/%d of %s %s failed", attempt+1, attempts, method, path)
		lastErr = err
	}

	return nil, &TransientError{Attempts: attempts, Err: lastErr}
}

func (c *Client) send(
	ctx context.Context, method, path string, content *Content,
) (*http.Response, error) {
	url, err := c.url(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if content != nil {
		body = bytes.NewReader(content.Data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if content != nil && len(content.Type) > 0 {
		req.Header.Set("Content-Type", content.Type)
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func (c *Client) url(path string) (string, error) {
	base := strings.TrimSpace(c.baseURI())
	if len(base) <= 0 {
		return "", ErrEmptyBaseURI
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}
