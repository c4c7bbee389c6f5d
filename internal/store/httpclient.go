package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// DefaultTimeout bounds every outbound request when the caller sets none.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// NewHTTPClient returns a client with a hard timeout and a traced transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// do sends req and returns the body of a 2xx response. Transport errors are
// network failures; any other status is a server failure.
func do(client *http.Client, op string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, networkFailure(op, xerrors.Wrapf(err, "%s %s", req.Method, req.URL.Redacted()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkFailure(op, xerrors.Wrap(err, "read response body"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverFailure(op, resp.StatusCode, xerrors.Newf("unexpected status %s", resp.Status))
	}
	return body, nil
}

// classifyAWS maps an AWS SDK error to a Failure. Errors carrying an HTTP
// status came from the service; everything else never got an answer.
func classifyAWS(op string, err error) error {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return serverFailure(op, re.HTTPStatusCode(), err)
	}
	return networkFailure(op, err)
}
