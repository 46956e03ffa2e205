package remote

import (
	"bytes"
	"context"
	"net/http"
)

// Request is a retryable, clonable description of an outbound call. Unlike
// *http.Request (whose Body is a single-use io.Reader), Request carries its
// body as a byte slice so ExecuteWithAuthRetry can build a fresh, equivalent
// http.Request for the retry attempt after a 401 (spec.md §4.2).
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// httpRequest builds a fresh *http.Request for this Request, bound to ctx.
func (r Request) httpRequest(ctx context.Context) (*http.Request, error) {
	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
