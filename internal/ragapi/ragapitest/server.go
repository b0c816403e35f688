// Package ragapitest provides an in-process RAG API server for tests and
// local development.
package ragapitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/seanblong/ragconsole/pkg/models"
)

// Response overrides what a route returns.
type Response struct {
	Status int
	Body   string
}

// Request is a call the fake received.
type Request struct {
	Path string
	Body []byte
}

// Fake serves the five RAG API routes from canned data. Routes without an
// override answer with plausible defaults built from Documents and Chunks.
type Fake struct {
	Documents []map[string]any
	Chunks    []models.SearchResult

	mu        sync.Mutex
	overrides map[string]Response
	requests  []Request
}

func NewFake() *Fake {
	return &Fake{overrides: make(map[string]Response)}
}

// Respond makes path return status and body verbatim.
func (f *Fake) Respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[path] = Response{Status: status, Body: body}
}

// Requests returns a copy of every request received so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Last returns the most recent request body sent to path, decoded into a map.
func (f *Fake) Last(path string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Path == path {
			var m map[string]any
			if err := json.Unmarshal(f.requests[i].Body, &m); err != nil {
				return nil, false
			}
			return m, true
		}
	}
	return nil, false
}

func (f *Fake) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pw_ai_answer", f.route(f.answer))
	mux.HandleFunc("/v1/retrieve", f.route(f.retrieve))
	mux.HandleFunc("/v1/pw_list_documents", f.route(f.listDocuments))
	mux.HandleFunc("/v1/pw_ai_summary", f.route(f.summary))
	mux.HandleFunc("/v1/statistics", f.route(f.statistics))
	return mux
}

// NewServer starts an httptest server backed by f.
func NewServer(f *Fake) *httptest.Server {
	return httptest.NewServer(f.Handler())
}

func (f *Fake) route(h func(w http.ResponseWriter, body []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, Request{Path: r.URL.Path, Body: body})
		o, ok := f.overrides[r.URL.Path]
		f.mu.Unlock()

		if ok {
			w.WriteHeader(o.Status)
			_, _ = io.WriteString(w, o.Body)
			return
		}
		h(w, body)
	}
}

func (f *Fake) answer(w http.ResponseWriter, body []byte) {
	var req models.AnswerRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusUnprocessableEntity)
		return
	}
	answer := "Answer to: " + req.Prompt
	if req.Filters != "" {
		answer += fmt.Sprintf(" (filtered by %s)", req.Filters)
	}
	_, _ = io.WriteString(w, answer)
}

func (f *Fake) retrieve(w http.ResponseWriter, body []byte) {
	var req models.RetrieveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	out := make([]models.SearchResult, 0, len(f.Chunks))
	for _, c := range f.Chunks {
		if len(out) == req.K {
			break
		}
		if strings.Contains(strings.ToLower(c.Content), strings.ToLower(req.Query)) {
			out = append(out, c)
		}
	}
	writeJSON(w, out)
}

func (f *Fake) listDocuments(w http.ResponseWriter, _ []byte) {
	docs := f.Documents
	if docs == nil {
		docs = []map[string]any{}
	}
	writeJSON(w, docs)
}

func (f *Fake) summary(w http.ResponseWriter, body []byte) {
	var req models.SummaryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	_, _ = fmt.Fprintf(w, "Summary of %d texts", len(req.TextList))
}

func (f *Fake) statistics(w http.ResponseWriter, _ []byte) {
	writeJSON(w, models.Statistics{
		NumDocuments: json.Number(strconv.Itoa(len(f.Documents))),
		NumChunks:    json.Number(strconv.Itoa(len(f.Chunks))),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
