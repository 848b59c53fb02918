// Package transport implements the terminal I/O contract from spec.md §6:
// bytes in, bytes out, plus optional progress reporting and streaming.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
)

// ProgressFunc reports bytesTransferred out of total, or total == -1 when the
// total size is unknown (spec.md §6).
type ProgressFunc func(bytesTransferred, total int64)

// Transport is the terminal component performing actual network I/O.
type Transport interface {
	Execute(ctx context.Context, req flux.Request) (flux.Response, error)
}

// ProgressReporter is implemented by transports that can report progress
// while executing a request. HTTP reports bytes of the response body as
// they are read; upload progress is not reported.
type ProgressReporter interface {
	ExecuteWithProgress(ctx context.Context, req flux.Request, progress ProgressFunc) (flux.Response, error)
}

// StreamingResponse is a response whose body is consumed incrementally
// rather than fully buffered, per spec.md §6.
type StreamingResponse struct {
	Status int
	Header flux.Header
	Body   io.ReadCloser
}

// Streamer is implemented by transports that support streaming responses.
type Streamer interface {
	Stream(ctx context.Context, req flux.Request) (StreamingResponse, error)
}

// HTTP is the default Transport, backed by net/http.Client. Connection
// pooling and HTTP/2 multiplexing are delegated entirely to net/http's
// Transport (spec.md §1 Non-goals).
type HTTP struct {
	Client *http.Client
}

// New builds an HTTP transport. A nil client uses http.DefaultClient's
// zero-value equivalent (a fresh *http.Client).
func New(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{Client: client}
}

// WithPin returns an HTTP transport that verifies every TLS connection with
// verify (see flux/pin.Config.VerifyPeerCertificate) in addition to normal
// certificate validation.
func WithPin(verify func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error) *HTTP {
	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.TLSClientConfig = &tls.Config{
		VerifyPeerCertificate: verify,
	}
	return New(&http.Client{Transport: rt})
}

func toHTTPRequest(ctx context.Context, req flux.Request) (*http.Request, error) {
	var bodyBytes []byte
	if b := req.Body(); b != nil {
		encoded, err := b.Encode()
		if err != nil {
			return nil, err
		}
		bodyBytes = encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method()), req.URL().String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header().Each(func(name, value string) {
		httpReq.Header.Add(name, value)
	})
	return httpReq, nil
}

func fromHTTPResponse(req flux.Request, resp *http.Response, body []byte) flux.Response {
	var h flux.Header
	for name, values := range resp.Header {
		for _, v := range values {
			h = h.Add(name, v)
		}
	}
	return flux.NewResponse(req, resp.StatusCode, h, body)
}

// Execute performs req and buffers the full response body.
func (t *HTTP) Execute(ctx context.Context, req flux.Request) (flux.Response, error) {
	return t.ExecuteWithProgress(ctx, req, nil)
}

// ExecuteWithProgress performs req, invoking progress as the response body
// is read (spec.md §6). progress may be nil. A non-zero req.Timeout() bounds
// the whole call via context.WithTimeout, independent of any deadline
// already on ctx.
func (t *HTTP) ExecuteWithProgress(ctx context.Context, req flux.Request, progress ProgressFunc) (flux.Response, error) {
	if d := req.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return flux.Response{}, fluxerr.EncodingErrorOf(err)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return flux.Response{}, ctxError(ctxErr)
		}
		return flux.Response{}, fluxerr.TransportError(err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{r: resp.Body, total: resp.ContentLength, cb: progress}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return flux.Response{}, ctxError(ctxErr)
		}
		return flux.Response{}, fluxerr.TransportError(err)
	}
	return fromHTTPResponse(req, resp, body), nil
}

// ctxError distinguishes spec.md §7's Timeout and Cancelled kinds: a
// deadline expiring is a Timeout, an explicit cancellation is Cancelled.
func ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fluxerr.TimeoutError("transport.Execute")
	}
	return fluxerr.CancelledError("transport.Execute")
}

// Stream performs req and returns a response whose body is readable
// incrementally; the caller owns closing it.
func (t *HTTP) Stream(ctx context.Context, req flux.Request) (StreamingResponse, error) {
	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return StreamingResponse{}, fluxerr.EncodingErrorOf(err)
	}
	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return StreamingResponse{}, fluxerr.TransportError(err)
	}
	var h flux.Header
	for name, values := range resp.Header {
		for _, v := range values {
			h = h.Add(name, v)
		}
	}
	return StreamingResponse{Status: resp.StatusCode, Header: h, Body: resp.Body}, nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	cb    ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		total := p.total
		if total < 0 {
			total = -1
		}
		p.cb(p.read, total)
	}
	return n, err
}
