package ragapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/ragconsole/pkg/models"
)

type HTTPClient struct {
	config *ClientConfig
	base   string
	http   *http.Client
}

// NewHTTPClient validates the base URL and builds a client. A zero Timeout
// leaves requests unbounded.
func NewHTTPClient(config *ClientConfig) (*HTTPClient, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}
	u, err := url.Parse(strings.TrimSpace(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute http(s): %q", config.BaseURL)
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if config.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &HTTPClient{
		config: config,
		base:   strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}, nil
}

func (c *HTTPClient) SearchEnabled() bool {
	return c.config.Endpoints.Retrieve != ""
}

func (c *HTTPClient) Answer(ctx context.Context, req models.AnswerRequest) (string, error) {
	body, err := c.post(ctx, c.config.Endpoints.Answer, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *HTTPClient) Retrieve(ctx context.Context, req models.RetrieveRequest) ([]models.SearchResult, error) {
	body, err := c.post(ctx, c.config.Endpoints.Retrieve, req)
	if err != nil {
		return nil, err
	}
	var out []models.SearchResult
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	body, err := c.post(ctx, c.config.Endpoints.ListDocuments, struct{}{})
	if err != nil {
		return nil, err
	}
	var out []models.Document
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Summarize(ctx context.Context, req models.SummaryRequest) (string, error) {
	body, err := c.post(ctx, c.config.Endpoints.Summary, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *HTTPClient) Statistics(ctx context.Context) (models.Statistics, error) {
	body, err := c.post(ctx, c.config.Endpoints.Statistics, struct{}{})
	if err != nil {
		return models.Statistics{}, err
	}
	var out models.Statistics
	if err := decode(body, &out); err != nil {
		return models.Statistics{}, err
	}
	switch {
	case out.NumDocuments == "":
		return models.Statistics{}, &ShapeError{Raw: string(body), Err: errors.New("missing num_documents")}
	case out.NumChunks == "":
		return models.Statistics{}, &ShapeError{Raw: string(body), Err: errors.New("missing num_chunks")}
	}
	return out, nil
}

// decode separates bodies that are not JSON at all from JSON of the wrong shape.
func decode(body []byte, v any) error {
	if !json.Valid(body) {
		return &DecodeError{Raw: string(body), Err: errors.New("invalid JSON")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ShapeError{Raw: string(body), Err: err}
	}
	return nil
}

// post sends payload as JSON and returns the body of a 200 response. Any
// other status yields a *StatusError carrying the body verbatim.
func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if path == "" {
		return nil, ErrEndpointDisabled
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
