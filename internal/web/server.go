package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/ragconsole/internal/binder"
)

//go:embed templates/page.html
var templateFS embed.FS

const defaultK = 5

// Actions is what the UI needs from the binder.
type Actions interface {
	Ask(ctx context.Context, f binder.AskForm) binder.View
	Search(ctx context.Context, f binder.SearchForm) binder.View
	ListDocuments(ctx context.Context) binder.View
	Summarize(ctx context.Context, f binder.SummarizeForm) binder.View
	Statistics(ctx context.Context) binder.View
	SearchEnabled() bool
}

type Server struct {
	Title   string
	actions Actions
	tmpl    *template.Template
}

type tab struct {
	ID     string
	Label  string
	Active bool
}

// page is the full form state echoed back on every render.
type page struct {
	Title         string
	Tab           string
	Tabs          []tab
	SearchEnabled bool

	APIKey   string
	Question string
	UseRAG   bool
	Filters  string
	Query    string
	K        int
	Texts    string

	ResultTab string
	Result    *binder.View
	Stats     *binder.View
}

func NewServer(actions Actions, title string) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Pathway RAG Application with Gemini"
	}
	return &Server{Title: title, actions: actions, tmpl: tmpl}, nil
}

// Routes registers the UI on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ask", s.action("ask", func(r *http.Request, p *page) binder.View {
		return s.actions.Ask(r.Context(), binder.AskForm{
			Question: p.Question,
			APIKey:   p.APIKey,
			UseRAG:   p.UseRAG,
			Filters:  p.Filters,
		})
	}))
	mux.HandleFunc("/search", s.action("search", func(r *http.Request, p *page) binder.View {
		return s.actions.Search(r.Context(), binder.SearchForm{Query: p.Query, K: p.K})
	}))
	mux.HandleFunc("/documents", s.action("documents", func(r *http.Request, p *page) binder.View {
		return s.actions.ListDocuments(r.Context())
	}))
	mux.HandleFunc("/summarize", s.action("summarize", func(r *http.Request, p *page) binder.View {
		return s.actions.Summarize(r.Context(), binder.SummarizeForm{Texts: p.Texts, APIKey: p.APIKey})
	}))
	mux.HandleFunc("/statistics", s.action("statistics", func(r *http.Request, p *page) binder.View {
		return s.actions.Statistics(r.Context())
	}))
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, s.newPage(r.URL.Query().Get("tab")))
	case http.MethodPost:
		// Tab switches post the whole form so typed input and the key survive.
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		p := s.pageFromForm(r)
		p.setTab(r.PostFormValue("goto"))
		s.render(w, r, p)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// action parses the shared form, runs one binder operation and re-renders
// the page with its result.
func (s *Server) action(name string, run func(r *http.Request, p *page) binder.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		start := time.Now()
		p := s.pageFromForm(r)
		if name == "search" && !p.SearchEnabled {
			http.NotFound(w, r)
			return
		}
		v := run(r, p)

		if name == "statistics" {
			p.Stats = &v
		} else {
			p.setTab(name)
			p.ResultTab = name
			p.Result = &v
		}

		hlog.FromRequest(r).Info().
			Str("action", name).
			Str("level", string(v.Level)).
			Dur("dur", time.Since(start)).
			Msg("served")
		s.render(w, r, p)
	}
}

func (s *Server) newPage(tabID string) *page {
	p := &page{
		Title:         s.Title,
		SearchEnabled: s.actions.SearchEnabled(),
		K:             defaultK,
	}
	p.setTab(tabID)
	return p
}

func (s *Server) pageFromForm(r *http.Request) *page {
	p := s.newPage(r.PostFormValue("tab"))
	p.APIKey = r.PostFormValue("gemini_api_key")
	p.Question = normalizeNewlines(r.PostFormValue("question"))
	p.UseRAG = r.PostFormValue("use_rag") != ""
	p.Filters = r.PostFormValue("filters")
	p.Query = r.PostFormValue("query")
	p.Texts = normalizeNewlines(r.PostFormValue("texts"))
	if v := strings.TrimSpace(r.PostFormValue("k")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0
		}
		p.K = n
	}
	return p
}

func (p *page) setTab(id string) {
	all := []tab{
		{ID: "ask", Label: "Ask Question"},
		{ID: "search", Label: "Search"},
		{ID: "documents", Label: "List Documents"},
		{ID: "summarize", Label: "Summarize Texts"},
	}
	p.Tabs = p.Tabs[:0]
	p.Tab = "ask"
	for _, t := range all {
		if t.ID == "search" && !p.SearchEnabled {
			continue
		}
		if t.ID == id {
			p.Tab = id
		}
		p.Tabs = append(p.Tabs, t)
	}
	for i := range p.Tabs {
		p.Tabs[i].Active = p.Tabs[i].ID == p.Tab
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, p *page) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, p); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to write page")
	}
}

// Handler wraps the routes with request logging.
func (s *Server) Handler(logger zerolog.Logger) http.Handler {
	return hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(s.Routes()),
	)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
