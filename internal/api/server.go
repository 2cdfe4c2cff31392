package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsight/internal/config"
	"github.com/dgallion1/docsight/internal/docstore"
	"github.com/dgallion1/docsight/internal/export"
	"github.com/dgallion1/docsight/internal/llm"
	"github.com/dgallion1/docsight/internal/metrics"
	"github.com/dgallion1/docsight/internal/parser"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docsight.
type Server struct {
	router   chi.Router
	store    *docstore.Store
	llm      *llm.Service
	exporter *export.Exporter
	metrics  *metrics.Metrics
	decoder  parser.Decoder
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. svc may be nil, in which
// case the model endpoints answer 503.
func NewServer(store *docstore.Store, svc *llm.Service, exp *export.Exporter, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:    store,
		llm:      svc,
		exporter: exp,
		metrics:  m,
		decoder:  parser.Decoder{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/summary", s.handleSummarize)
			r.Get("/summary.pdf", s.handleSummaryPDF)
			r.Post("/ask", s.handleAsk)
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/export.xlsx", s.handleExportXLSX)
		})
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
