// Package graphtest provides an in-process fake of the Graph API publish
// endpoints for tests.
package graphtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// Version is the API version the fake serves under
const Version = "v20.0"

// Call kinds
const (
	KindCreate  = "create"
	KindStatus  = "status"
	KindPublish = "publish"
)

// Response is a canned reply. Body is written as-is when it is a string and
// JSON-encoded otherwise.
type Response struct {
	Status int
	Body   interface{}
}

// Call records one request the fake received
type Call struct {
	Kind    string
	Account string
	Handle  string
	Form    url.Values
	At      time.Time
}

// Server is a fake Graph API backed by httptest.Server
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	create   Response
	statuses []Response
	publish  Response
	calls    []Call
}

// NewServer starts a fake that creates container C1, reports it FINISHED and
// publishes it as M1. It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		create:   Response{Status: http.StatusOK, Body: map[string]string{"id": "C1"}},
		statuses: []Response{StatusResponse("FINISHED")},
		publish:  Response{Status: http.StatusOK, Body: map[string]string{"id": "M1"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+Version+"/{account}/media", s.handleCreate)
	mux.HandleFunc("POST /"+Version+"/{account}/media_publish", s.handlePublish)
	mux.HandleFunc("GET /"+Version+"/{handle}", s.handleStatus)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the versioned base URL to hand to a graph client
func (s *Server) Endpoint() string {
	return s.URL + "/" + Version
}

// StatusResponse is a 200 reply carrying status_code. An empty status omits
// the field.
func StatusResponse(status string) Response {
	if status == "" {
		return Response{Status: http.StatusOK, Body: map[string]string{}}
	}
	return Response{Status: http.StatusOK, Body: map[string]string{"status_code": status}}
}

// ErrorResponse is a Graph API error envelope with the given status
func ErrorResponse(status int, message string) Response {
	return Response{
		Status: status,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message":    message,
				"type":       "OAuthException",
				"code":       100,
				"fbtrace_id": "AbCdEf",
			},
		},
	}
}

// SetCreate sets the reply to container creation
func (s *Server) SetCreate(r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.create = r
}

// SetPublish sets the reply to publish
func (s *Server) SetPublish(r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = r
}

// SetStatuses sets the status_code sequence; the last one repeats
func (s *Server) SetStatuses(statuses ...string) {
	responses := make([]Response, len(statuses))
	for i, status := range statuses {
		responses[i] = StatusResponse(status)
	}
	s.SetStatusResponses(responses...)
}

// SetStatusResponses sets the status reply sequence; the last one repeats
func (s *Server) SetStatusResponses(responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = responses
}

// Calls returns every request received so far, in order
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Kinds returns the kind of every request received so far, in order
func (s *Server) Kinds() []string {
	calls := s.Calls()
	kinds := make([]string, len(calls))
	for i, c := range calls {
		kinds[i] = c.Kind
	}
	return kinds
}

// Count returns how many requests of kind were received
func (s *Server) Count(kind string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func (s *Server) record(c Call) {
	c.At = time.Now()
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.record(Call{Kind: KindCreate, Account: r.PathValue("account"), Form: r.PostForm})

	s.mu.Lock()
	resp := s.create
	s.mu.Unlock()
	write(w, resp)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.record(Call{Kind: KindPublish, Account: r.PathValue("account"), Handle: r.PostForm.Get("creation_id"), Form: r.PostForm})

	s.mu.Lock()
	resp := s.publish
	s.mu.Unlock()
	write(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.record(Call{Kind: KindStatus, Handle: r.PathValue("handle"), Form: r.URL.Query()})

	s.mu.Lock()
	resp := Response{Status: http.StatusOK, Body: map[string]string{}}
	switch len(s.statuses) {
	case 0:
	case 1:
		resp = s.statuses[0]
	default:
		resp = s.statuses[0]
		s.statuses = s.statuses[1:]
	}
	s.mu.Unlock()
	write(w, resp)
}

func write(w http.ResponseWriter, r Response) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	if body, ok := r.Body.(string); ok {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r.Body)
}
