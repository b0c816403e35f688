package ragapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seanblong/ragconsole/pkg/models"
)

const testBase = "http://rag.test:8000"

// MockTransport implements http.RoundTripper for testing
type MockTransport struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	requests  []recordedRequest
	err       error
}

type mockResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	method string
	url    string
	header http.Header
	body   string
}

func NewMockTransport() *MockTransport {
	return &MockTransport{responses: make(map[string]mockResponse)}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	m.requests = append(m.requests, recordedRequest{
		method: req.Method,
		url:    req.URL.String(),
		header: req.Header.Clone(),
		body:   body,
	})

	if m.err != nil {
		return nil, m.err
	}

	key := fmt.Sprintf("%s %s", req.Method, req.URL.String())
	if r, ok := m.responses[key]; ok {
		return &http.Response{
			StatusCode: r.status,
			Status:     fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
			Body:       io.NopCloser(strings.NewReader(r.body)),
			Header:     make(http.Header),
		}, nil
	}

	// Default response if no mock is set up
	return &http.Response{
		StatusCode: 500,
		Status:     "500 Internal Server Error",
		Body:       io.NopCloser(strings.NewReader("mock not configured")),
		Header:     make(http.Header),
	}, nil
}

func (m *MockTransport) AddResponse(path string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses["POST "+testBase+path] = mockResponse{status: statusCode, body: body}
}

func (m *MockTransport) Requests() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Helper function to create a client with mock transport
func createMockClient(t *testing.T, transport *MockTransport) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(&ClientConfig{
		BaseURL:   testBase + "/",
		Endpoints: DefaultEndpoints(),
	})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	client.http = &http.Client{Transport: transport}
	return client
}

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name    string
		config  *ClientConfig
		wantErr bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "empty base", config: &ClientConfig{}, wantErr: true},
		{name: "relative base", config: &ClientConfig{BaseURL: "localhost:8000"}, wantErr: true},
		{name: "unsupported scheme", config: &ClientConfig{BaseURL: "ftp://localhost"}, wantErr: true},
		{name: "http", config: &ClientConfig{BaseURL: "http://localhost:8000"}},
		{name: "https with path", config: &ClientConfig{BaseURL: "https://rag.example.com/api/"}},
		{name: "timeout and tls skip", config: &ClientConfig{BaseURL: "https://rag.example.com", Timeout: time.Second, SkipTLSVerify: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewHTTPClient(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got client %+v", c)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.HasSuffix(c.base, "/") {
				t.Errorf("base should not end with '/', got %q", c.base)
			}
			if c.http.Timeout != tt.config.Timeout {
				t.Errorf("expected timeout %v, got %v", tt.config.Timeout, c.http.Timeout)
			}
			tr := c.http.Transport.(*http.Transport)
			if tt.config.SkipTLSVerify && (tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify) {
				t.Error("expected InsecureSkipVerify to be set")
			}
		})
	}
}

func TestAnswer_Payload(t *testing.T) {
	tests := []struct {
		name     string
		req      models.AnswerRequest
		wantBody string
	}{
		{
			name:     "prompt only",
			req:      models.AnswerRequest{Prompt: "What is Pathway?"},
			wantBody: `{"prompt":"What is Pathway?"}`,
		},
		{
			name:     "with api key",
			req:      models.AnswerRequest{Prompt: "q", GeminiAPIKey: "secret"},
			wantBody: `{"prompt":"q","gemini_api_key":"secret"}`,
		},
		{
			name:     "with filters",
			req:      models.AnswerRequest{Prompt: "q", Filters: "contains(path, `docx`)"},
			wantBody: `{"prompt":"q","filters":"contains(path, ` + "`docx`" + `)"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.AddResponse("/v1/pw_ai_answer", 200, "the answer")
			client := createMockClient(t, transport)

			got, err := client.Answer(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Answer failed: %v", err)
			}
			if got != "the answer" {
				t.Errorf("expected raw body as answer, got %q", got)
			}

			reqs := transport.Requests()
			if len(reqs) != 1 {
				t.Fatalf("expected 1 request, got %d", len(reqs))
			}
			if reqs[0].method != http.MethodPost {
				t.Errorf("expected POST, got %s", reqs[0].method)
			}
			if reqs[0].url != testBase+"/v1/pw_ai_answer" {
				t.Errorf("unexpected url %s", reqs[0].url)
			}
			if reqs[0].body != tt.wantBody {
				t.Errorf("expected body %s, got %s", tt.wantBody, reqs[0].body)
			}
			if ct := reqs[0].header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			if a := reqs[0].header.Get("Authorization"); a != "" {
				t.Errorf("no Authorization header expected, got %q", a)
			}
		})
	}
}

func TestRetrieve(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/retrieve", 200, `[{"score":0.91,"content":"chunk one","metadata":{"path":"a.docx","page":2}}]`)
	client := createMockClient(t, transport)

	res, err := client.Retrieve(context.Background(), models.RetrieveRequest{Query: "pathway", K: 5})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got := transport.Requests()[0].body; got != `{"query":"pathway","k":5}` {
		t.Errorf("unexpected body %s", got)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res))
	}
	if res[0].Score != 0.91 || res[0].Content != "chunk one" {
		t.Errorf("unexpected result %+v", res[0])
	}
	if res[0].Metadata["path"] != "a.docx" {
		t.Errorf("unexpected metadata %v", res[0].Metadata)
	}
}

func TestRetrieve_Disabled(t *testing.T) {
	transport := NewMockTransport()
	client := createMockClient(t, transport)
	client.config.Endpoints.Retrieve = ""

	if client.SearchEnabled() {
		t.Error("expected search to be disabled")
	}
	_, err := client.Retrieve(context.Background(), models.RetrieveRequest{Query: "q", K: 1})
	if !errors.Is(err, ErrEndpointDisabled) {
		t.Fatalf("expected ErrEndpointDisabled, got %v", err)
	}
	if n := len(transport.Requests()); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
}

func TestListDocuments(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/pw_list_documents", 200,
		`[{"path":"docs/a.pdf","size":1024,"modified_at":1718000000},{"size":3}]`)
	client := createMockClient(t, transport)

	docs, err := client.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if got := transport.Requests()[0].body; got != `{}` {
		t.Errorf("expected empty JSON object body, got %s", got)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Path != "docs/a.pdf" {
		t.Errorf("unexpected path %q", docs[0].Path)
	}
	if len(docs[0].Fields) != 2 || docs[0].Fields[0].Key != "size" || docs[0].Fields[1].Key != "modified_at" {
		t.Errorf("fields out of order: %+v", docs[0].Fields)
	}
	if docs[1].Path != "" {
		t.Errorf("expected empty path for second document, got %q", docs[1].Path)
	}
}

func TestListDocuments_NotJSON(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/pw_list_documents", 200, "docs/a.pdf\ndocs/b.pdf")
	client := createMockClient(t, transport)

	_, err := client.ListDocuments(context.Background())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Raw != "docs/a.pdf\ndocs/b.pdf" {
		t.Errorf("expected raw body to be kept, got %q", de.Raw)
	}
}

func TestSummarize(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/pw_ai_summary", 200, "short summary")
	client := createMockClient(t, transport)

	got, err := client.Summarize(context.Background(), models.SummaryRequest{TextList: []string{"one", "", "three"}})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "short summary" {
		t.Errorf("unexpected summary %q", got)
	}
	if body := transport.Requests()[0].body; body != `{"text_list":["one","","three"]}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestStatistics(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/statistics", 200, `{"num_documents": 12, "num_chunks": 340}`)
	client := createMockClient(t, transport)

	stats, err := client.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.NumDocuments != "12" || stats.NumChunks != "340" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStatistics_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantDocs  string
		wantShape bool
		wantJSON  bool
	}{
		{name: "float counts kept verbatim", body: `{"num_documents": 12.0, "num_chunks": 3.5}`, wantDocs: "12.0"},
		{name: "missing counts", body: `{"error":"no index"}`, wantShape: true},
		{name: "null count", body: `{"num_documents": null, "num_chunks": 1}`, wantShape: true},
		{name: "wrong type", body: `{"num_documents": true, "num_chunks": 1}`, wantShape: true},
		{name: "array", body: `[1, 2]`, wantShape: true},
		{name: "not json", body: `12 documents`, wantJSON: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.AddResponse("/v1/statistics", 200, tt.body)
			client := createMockClient(t, transport)

			stats, err := client.Statistics(context.Background())
			var se *ShapeError
			var de *DecodeError
			switch {
			case tt.wantShape:
				if !errors.As(err, &se) {
					t.Fatalf("expected ShapeError, got %v", err)
				}
				if se.Raw != tt.body {
					t.Errorf("unexpected raw %q", se.Raw)
				}
			case tt.wantJSON:
				if !errors.As(err, &de) {
					t.Fatalf("expected DecodeError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Statistics failed: %v", err)
				}
				if string(stats.NumDocuments) != tt.wantDocs {
					t.Errorf("expected %q documents, got %q", tt.wantDocs, stats.NumDocuments)
				}
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("/v1/statistics", 500, "internal error")
	client := createMockClient(t, transport)

	_, err := client.Statistics(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != 500 || se.Body != "internal error" {
		t.Errorf("unexpected status error %+v", se)
	}
	if se.Error() != "500 - internal error" {
		t.Errorf("unexpected message %q", se.Error())
	}
}

func TestTransportError(t *testing.T) {
	transport := NewMockTransport()
	transport.err = errors.New("connection refused")
	client := createMockClient(t, transport)

	_, err := client.Answer(context.Background(), models.AnswerRequest{Prompt: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection refused") || !strings.Contains(err.Error(), "/v1/pw_ai_answer") {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Error("transport failure must not be a StatusError")
	}
}
