package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// NewIPv4TestServer starts an httptest server bound to 127.0.0.1 and closes
// it when the test completes.
func NewIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen on loopback: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	t.Cleanup(server.Close)
	return server
}

// Response is a canned reply for one request path.
type Response struct {
	Status int
	Body   string
	Header http.Header
}

// Routes serves canned JSON responses keyed by URL path and counts hits.
// Unknown paths answer 404 with an Open Library style error body.
type Routes struct {
	mu        sync.Mutex
	responses map[string]Response
	hits      map[string]int
	requests  []*http.Request
}

// NewRoutes creates an empty route table.
func NewRoutes() *Routes {
	return &Routes{
		responses: make(map[string]Response),
		hits:      make(map[string]int),
	}
}

// JSON registers a 200 response with body for path.
func (r *Routes) JSON(path, body string) *Routes {
	return r.Set(path, Response{Status: http.StatusOK, Body: body})
}

// Set registers resp for path.
func (r *Routes) Set(path string, resp Response) *Routes {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[path] = resp
	return r
}

// Hits returns how many times path was requested.
func (r *Routes) Hits(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

// Total returns the number of requests served.
func (r *Routes) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Last returns the most recent request, or nil.
func (r *Routes) Last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

func (r *Routes) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	r.requests = append(r.requests, req.Clone(req.Context()))
	resp, ok := r.responses[req.URL.Path]
	r.mu.Unlock()

	if !ok {
		resp = Response{Status: http.StatusNotFound, Body: `{"error": "notfound", "key": "` + req.URL.Path + `"}`}
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp.Body))
}
