package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// MockSocrataServer simulates the paginated dataset endpoint. Pages are
// served by offset: a request with offset = i*limit gets pages[i], and any
// offset past the configured pages gets an empty list, which is how the real
// endpoint signals exhaustion.
type MockSocrataServer struct {
	server *httptest.Server

	mu           sync.Mutex
	pages        [][]map[string]any
	requests     []url.Values
	tokens       []string
	failStatus   int
	failAfterReq int
}

// NewMockSocrataServer creates a started server; callers must Close it.
func NewMockSocrataServer(pages [][]map[string]any) *MockSocrataServer {
	s := &MockSocrataServer{pages: pages}

	r := chi.NewRouter()
	r.Get("/resource/erm2-nwe9.json", s.handleQuery)
	s.server = httptest.NewServer(r)

	return s
}

// URL returns the endpoint URL to point a client at
func (s *MockSocrataServer) URL() string {
	return s.server.URL + "/resource/erm2-nwe9.json"
}

// Close shuts the server down
func (s *MockSocrataServer) Close() {
	s.server.Close()
}

// FailWith makes the server return the given status after afterRequests
// successful responses (0 = fail immediately).
func (s *MockSocrataServer) FailWith(status, afterRequests int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failAfterReq = afterRequests
}

// Requests returns the recorded query parameters of every request, in order
func (s *MockSocrataServer) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.requests))
	copy(out, s.requests)
	return out
}

// Tokens returns the X-App-Token header of every request, in order
func (s *MockSocrataServer) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

func (s *MockSocrataServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	query := r.URL.Query()
	s.requests = append(s.requests, query)
	s.tokens = append(s.tokens, r.Header.Get("X-App-Token"))
	served := len(s.requests) - 1
	failStatus, failAfter := s.failStatus, s.failAfterReq
	pages := s.pages
	s.mu.Unlock()

	if failStatus != 0 && served >= failAfter {
		http.Error(w, http.StatusText(failStatus), failStatus)
		return
	}

	limit, _ := strconv.Atoi(query.Get("$limit"))
	offset, _ := strconv.Atoi(query.Get("$offset"))

	var page []map[string]any
	if limit > 0 {
		if idx := offset / limit; idx < len(pages) {
			page = pages[idx]
		}
	}
	if page == nil {
		page = []map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}
