package ragapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seanblong/ragconsole/pkg/models"
)

// Client is the contract a front-end needs from the RAG API server.
type Client interface {
	Answer(ctx context.Context, req models.AnswerRequest) (string, error)
	Retrieve(ctx context.Context, req models.RetrieveRequest) ([]models.SearchResult, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	Summarize(ctx context.Context, req models.SummaryRequest) (string, error)
	Statistics(ctx context.Context) (models.Statistics, error)
	SearchEnabled() bool
}

// Endpoints maps each action to its path on the API server. An empty path
// disables the action.
type Endpoints struct {
	Answer        string `yaml:"answer" split_words:"true"`
	Retrieve      string `yaml:"retrieve" split_words:"true"`
	ListDocuments string `yaml:"listDocuments" split_words:"true"`
	Summary       string `yaml:"summary" split_words:"true"`
	Statistics    string `yaml:"statistics" split_words:"true"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Answer:        "/v1/pw_ai_answer",
		Retrieve:      "/v1/retrieve",
		ListDocuments: "/v1/pw_list_documents",
		Summary:       "/v1/pw_ai_summary",
		Statistics:    "/v1/statistics",
	}
}

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL       string
	Endpoints     Endpoints
	Timeout       time.Duration
	SkipTLSVerify bool
}

// ErrEndpointDisabled is returned when the action has no configured path.
var ErrEndpointDisabled = errors.New("endpoint not configured")

// StatusError reports a response with any status other than 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d - %s", e.StatusCode, e.Body)
}

// DecodeError reports a 200 response whose body is not the JSON the action expects.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return "response is not valid JSON: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeError reports a 200 response that is valid JSON but not the shape the
// action expects, such as a statistics object without its counts.
type ShapeError struct {
	Raw string
	Err error
}

func (e *ShapeError) Error() string {
	return "unexpected response: " + e.Err.Error()
}

func (e *ShapeError) Unwrap() error { return e.Err }
