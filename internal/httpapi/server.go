// Package httpapi exposes the chat widget, quote wizard, news feed, site
// content and admin dashboard as a JSON API.
package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"empirepilot/internal/admin"
	"empirepilot/internal/content"
	"empirepilot/internal/metrics"
	"empirepilot/internal/news"
	"empirepilot/internal/pilot"
	"empirepilot/internal/quote"
)

const adminActor = "admin"

type Config struct {
	Pilot      *pilot.Service
	News       *news.Service
	Quotes     *quote.Service
	Admin      *admin.Service
	Site       *content.Site
	AdminToken string
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics

	// ClientLimiter caps chat messages per remote address across sessions.
	// Nil disables the cap.
	ClientLimiter pilot.Limiter
}

type Server struct {
	pilot      *pilot.Service
	news       *news.Service
	quotes     *quote.Service
	admin      *admin.Service
	site       *content.Site
	adminToken string
	limiter    pilot.Limiter
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Server{
		pilot:      cfg.Pilot,
		news:       cfg.News,
		quotes:     cfg.Quotes,
		admin:      cfg.Admin,
		site:       cfg.Site,
		adminToken: cfg.AdminToken,
		limiter:    cfg.ClientLimiter,
		logger:     cfg.Logger,
		metrics:    m,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat/sessions", s.openSession)
	mux.HandleFunc("GET /api/chat/sessions/{id}", s.getSession)
	mux.HandleFunc("POST /api/chat/sessions/{id}/messages", s.sendMessage)
	mux.HandleFunc("POST /api/chat/sessions/{id}/actions/{action}", s.quickAction)
	mux.HandleFunc("GET /api/chat/actions", s.listActions)

	mux.HandleFunc("GET /api/quote/options", s.quoteOptions)
	mux.HandleFunc("POST /api/quote/validate/{step}", s.validateQuoteStep)
	mux.HandleFunc("POST /api/quotes", s.submitQuote)

	mux.HandleFunc("GET /api/news", s.listNews)
	mux.HandleFunc("GET /api/news/tags", s.newsTags)

	mux.HandleFunc("GET /api/content/{section}", s.siteContent)

	mux.Handle("GET /api/admin/stats", s.requireAdmin(s.adminStats))
	mux.Handle("GET /api/admin/conversations", s.requireAdmin(s.adminConversations))
	mux.Handle("GET /api/admin/conversations/{id}", s.requireAdmin(s.adminConversation))
	mux.Handle("POST /api/admin/conversations/{id}/close", s.requireAdmin(s.adminCloseConversation))
	mux.Handle("GET /api/admin/leads.csv", s.requireAdmin(s.adminExportLeads))
	mux.Handle("GET /api/admin/news", s.requireAdmin(s.adminListNews))
	mux.Handle("POST /api/admin/news/preview", s.requireAdmin(s.adminPreviewNews))
	mux.Handle("POST /api/admin/news", s.requireAdmin(s.adminCreateNews))
	mux.Handle("POST /api/admin/news/{id}/publish", s.requireAdmin(s.adminPublishNews))
	mux.Handle("GET /api/admin/quotes", s.requireAdmin(s.adminQuotes))

	return s.logRequests(mux)
}

// requireAdmin checks the bearer token. An empty token leaves the admin
// routes open.
func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
		}
		next(w, r)
	})
}
