package binder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/seanblong/ragconsole/internal/ragapi"
	"github.com/seanblong/ragconsole/pkg/models"
)

const notJSONWarning = "Response is not in JSON format. Raw response:"

// AskForm is the state of the question tab plus the sidebar API key.
type AskForm struct {
	Question string
	APIKey   string
	UseRAG   bool
	Filters  string
}

type SearchForm struct {
	Query string
	K     int
}

// SummarizeForm carries the multi-line input, one text per line.
type SummarizeForm struct {
	Texts  string
	APIKey string
}

// Binder turns form input into API calls and API outcomes into Views.
// None of its methods return an error: every failure becomes an error or
// warning View.
type Binder struct {
	Client ragapi.Client
	Logger zerolog.Logger
}

func New(client ragapi.Client, logger zerolog.Logger) *Binder {
	return &Binder{Client: client, Logger: logger}
}

func (b *Binder) SearchEnabled() bool { return b.Client.SearchEnabled() }

// Ask sends the question to the answer endpoint. The API key is included only
// when set, filters only when RAG is on and a filter was entered.
func (b *Binder) Ask(ctx context.Context, f AskForm) View {
	if f.Question == "" {
		return warning("Please enter a question.")
	}
	req := models.AnswerRequest{Prompt: f.Question, GeminiAPIKey: f.APIKey}
	if f.UseRAG && f.Filters != "" {
		req.Filters = f.Filters
	}

	start := time.Now()
	answer, err := b.Client.Answer(ctx, req)
	if err != nil {
		return b.fail("ask", "Error", err, start)
	}
	v := success("Answer received!")
	v.Heading = "Answer:"
	v.Text = answer
	return v
}

func (b *Binder) Search(ctx context.Context, f SearchForm) View {
	if strings.TrimSpace(f.Query) == "" {
		return warning("Please enter a search query.")
	}
	if f.K < 1 {
		return warning("k must be at least 1.")
	}

	start := time.Now()
	results, err := b.Client.Retrieve(ctx, models.RetrieveRequest{Query: f.Query, K: f.K})
	if err != nil {
		return b.fail("search", "Error", err, start)
	}
	if len(results) == 0 {
		return warning("No results found.")
	}

	v := success(fmt.Sprintf("Found %d results.", len(results)))
	for i, r := range results {
		v.Sections = append(v.Sections, Section{
			Title: "Result " + strconv.Itoa(i+1),
			Fields: []Field{
				{Label: "Score", Value: strconv.FormatFloat(r.Score, 'f', -1, 64)},
				{Label: "Content", Value: r.Content},
				{Label: "Metadata", Value: formatMetadata(r.Metadata)},
			},
		})
	}
	return v
}

// ListDocuments renders one section per document, titled by its path.
func (b *Binder) ListDocuments(ctx context.Context) View {
	start := time.Now()
	docs, err := b.Client.ListDocuments(ctx)
	if err != nil {
		return b.fail("list_documents", "Error", err, start)
	}
	if len(docs) == 0 {
		return warning("No documents found.")
	}

	v := success(fmt.Sprintf("Fetched %d documents.", len(docs)))
	for _, d := range docs {
		title := d.Path
		if title == "" {
			title = "Unnamed Document"
		}
		s := Section{Title: title}
		for _, fld := range d.Fields {
			s.Fields = append(s.Fields, Field{Label: capitalize(fld.Key), Value: formatRaw(fld.Value)})
		}
		v.Sections = append(v.Sections, s)
	}
	return v
}

// Summarize sends every input line, blank ones included, as one text.
func (b *Binder) Summarize(ctx context.Context, f SummarizeForm) View {
	if f.Texts == "" {
		return warning("Please enter some text to summarize.")
	}
	req := models.SummaryRequest{
		TextList:     strings.Split(f.Texts, "\n"),
		GeminiAPIKey: f.APIKey,
	}

	start := time.Now()
	summary, err := b.Client.Summarize(ctx, req)
	if err != nil {
		return b.fail("summarize", "Error", err, start)
	}
	v := success("Summary generated!")
	v.Heading = "Summary:"
	v.Text = summary
	return v
}

func (b *Binder) Statistics(ctx context.Context) View {
	start := time.Now()
	stats, err := b.Client.Statistics(ctx)
	if err != nil {
		return b.fail("statistics", "Error fetching statistics", err, start)
	}
	v := success("Statistics fetched successfully!")
	v.Metrics = []Metric{
		{Label: "Number of documents", Value: stats.NumDocuments.String()},
		{Label: "Number of chunks", Value: stats.NumChunks.String()},
	}
	return v
}

func (b *Binder) fail(action, prefix string, err error, start time.Time) View {
	ev := b.Logger.Warn().Err(err).Str("action", action).Dur("dur", time.Since(start))

	var se *ragapi.StatusError
	var de *ragapi.DecodeError
	var she *ragapi.ShapeError
	switch {
	case errors.As(err, &se):
		ev.Int("status", se.StatusCode).Msg("upstream returned non-200")
		return failure(fmt.Sprintf("%s: %d - %s", prefix, se.StatusCode, se.Body))
	case errors.As(err, &de):
		ev.Msg("upstream returned non-JSON body")
		v := warning(notJSONWarning)
		v.Raw = de.Raw
		return v
	case errors.As(err, &she):
		ev.Msg("upstream returned unexpected JSON")
		v := failure(fmt.Sprintf("%s: %v", prefix, she))
		v.Raw = she.Raw
		return v
	case errors.Is(err, ragapi.ErrEndpointDisabled):
		ev.Msg("action disabled")
		return failure(fmt.Sprintf("%s: %s is not available on this server", prefix, action))
	default:
		ev.Msg("upstream request failed")
		return failure(fmt.Sprintf("%s: %v", prefix, err))
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// formatRaw shows JSON strings unquoted and everything else as compact JSON.
func formatRaw(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func formatMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		b, err := json.Marshal(m[k])
		if err != nil {
			b = []byte(fmt.Sprint(m[k]))
		}
		parts = append(parts, k+": "+formatRaw(b))
	}
	return strings.Join(parts, ", ")
}
