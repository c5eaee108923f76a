package ratelimit

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
)

// Response adapts *http.Response to StatusCoder.
type Response struct {
	*http.Response
}

func (r *Response) HTTPStatus() int {
	if r == nil || r.Response == nil {
		return 0
	}
	return r.StatusCode
}

func (r *Response) Close() error {
	if r == nil || r.Response == nil || r.Body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return r.Body.Close()
}

// Transport is an http.RoundTripper that takes a token from Limiter for each
// request and retries failed attempts through the backoff schedule.
type Transport struct {
	Limiter *Limiter
	Base    http.RoundTripper
}

// NewClient returns an http.Client whose requests go through l.
func NewClient(l *Limiter) *http.Client {
	return &http.Client{Transport: &Transport{Limiter: l}}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	ctx := req.Context()
	if !t.Limiter.Wait(ctx, 0) {
		return nil, apperrors.New(apperrors.ErrRateLimited, t.Limiter.Name()+": wait for token aborted", ctx.Err())
	}

	resp, err := Retry(ctx, t.Limiter, func(ctx context.Context) (*Response, error) {
		attempt := req.Clone(ctx)
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
			attempt.ContentLength = int64(len(body))
		}
		r, err := base.RoundTrip(attempt)
		if err != nil {
			return nil, err
		}
		return &Response{Response: r}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Response, nil
}
