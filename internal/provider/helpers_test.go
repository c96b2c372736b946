package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

type fakeResponse struct {
	status int
	sse    bool
	body   string
}

// fakeTransport answers requests in order and records what was sent.
type fakeTransport struct {
	mu        sync.Mutex
	responses []fakeResponse
	requests  []capturedRequest
}

type capturedRequest struct {
	method string
	path   string
	query  string
	body   string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, capturedRequest{
		method: req.Method,
		path:   req.URL.Path,
		query:  req.URL.RawQuery,
		body:   string(body),
	})
	if len(f.responses) == 0 {
		return nil, errors.New("fake transport: unexpected request " + req.Method + " " + req.URL.Path)
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	resp := &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     make(http.Header),
		Request:    req,
	}
	if r.sse {
		resp.Header.Set("Content-Type", "text/event-stream")
	} else {
		resp.Header.Set("Content-Type", "application/json")
	}
	return resp, nil
}

func (f *fakeTransport) sent() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func jsonResponse(body string) fakeResponse { return fakeResponse{status: 200, body: body} }

// sseResponse builds a text/event-stream body from name/data pairs.
func sseResponse(pairs ...string) fakeResponse {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", pairs[i], pairs[i+1])
	}
	return fakeResponse{status: 200, sse: true, body: b.String()}
}

func collect(t *testing.T, s remote.Stream) []remote.Event {
	t.Helper()
	defer s.Close()
	var out []remote.Event
	for s.Next() {
		out = append(out, s.Current())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream: %v", err)
	}
	return out
}

func kinds(events []remote.Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.Kind.String()
		if e.Kind == remote.EventRunStatus {
			parts[i] += ":" + string(e.Run.Status)
		}
	}
	return strings.Join(parts, ",")
}
