package devkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/auditgrid/ledgersync/providers"
)

type HTTPScript struct {
	StatusCode int
	Body       string
	Header     http.Header
	Err        error
}

// FakeHTTPClient replays scripted responses in order and records every
// request it served, including a copy of the request body.
type FakeHTTPClient struct {
	mu       sync.Mutex
	scripts  []HTTPScript
	requests []RecordedRequest
}

type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func NewFakeHTTPClient(scripts ...HTTPScript) *FakeHTTPClient {
	return &FakeHTTPClient{scripts: append([]HTTPScript(nil), scripts...)}
}

func (c *FakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("devkit: fake http client is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		recorded.Body = body
	}
	c.requests = append(c.requests, recorded)

	index := len(c.requests) - 1
	script := HTTPScript{StatusCode: http.StatusOK}
	if index < len(c.scripts) {
		script = c.scripts[index]
	} else if len(c.scripts) > 0 {
		script = c.scripts[len(c.scripts)-1]
	}
	if script.Err != nil {
		return nil, script.Err
	}

	header := http.Header{}
	for key, values := range script.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	return &http.Response{
		StatusCode: script.StatusCode,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(script.Body))),
	}, nil
}

func (c *FakeHTTPClient) Requests() []RecordedRequest {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RecordedRequest, 0, len(c.requests))
	for _, item := range c.requests {
		cloned := RecordedRequest{
			Method: item.Method,
			URL:    item.URL,
			Header: item.Header.Clone(),
			Body:   append([]byte(nil), item.Body...),
		}
		out = append(out, cloned)
	}
	return out
}

var _ providers.HTTPDoer = (*FakeHTTPClient)(nil)
