package httpapi

import (
	"net/http"
	"strconv"

	"empirepilot/internal/admin"
	"empirepilot/internal/domain"
	"empirepilot/internal/news"
	"empirepilot/internal/quote"
)

const recentLeads = 5

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.admin.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recent, err := s.admin.RecentQualified(r.Context(), parseLimit(r.URL.Query().Get("recent"), recentLeads))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		admin.Stats
		RecentLeads []admin.LeadRow `json:"recentLeads"`
	}{st, recent})
}

func (s *Server) adminConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	convs, err := s.admin.Conversations(r.Context(), admin.Filter{Status: q.Get("status"), Search: q.Get("search")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]sessionView, 0, len(convs))
	for _, c := range convs {
		v := sessionView{
			SessionID:   c.ID,
			Status:      c.Status,
			Messages:    s.viewMessages(c.Messages),
			LastUpdated: c.LastUpdated,
		}
		if c.Lead != nil {
			v.Lead = *c.Lead
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminConversation(w http.ResponseWriter, r *http.Request) {
	c, err := s.admin.Conversation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := sessionView{
		SessionID:   c.ID,
		Status:      c.Status,
		Messages:    s.viewMessages(c.Messages),
		LastUpdated: c.LastUpdated,
	}
	if c.Lead != nil {
		v.Lead = *c.Lead
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) adminCloseConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.CloseConversation(r.Context(), r.PathValue("id"), adminActor); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminExportLeads(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="empire-leads.csv"`)
	n, err := s.admin.ExportLeads(r.Context(), w, adminActor)
	if err != nil {
		// Headers are gone once rows are written.
		s.logger.Error().Err(err).Int("rows", n).Msg("lead export failed")
		return
	}
	s.logger.Info().Int("rows", n).Msg("leads exported")
}

func (s *Server) adminListNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := s.news.List(r.Context(), news.Filter{Search: q.Get("search"), Tag: q.Get("tag"), IncludeDrafts: true})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewPosts(posts))
}

func (s *Server) adminPreviewNews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.news.Preview(req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) adminCreateNews(w http.ResponseWriter, r *http.Request) {
	var d news.Draft
	if err := decodeJSON(r, &d); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.news.Create(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.viewPosts([]domain.NewsPost{p})[0])
}

func (s *Server) adminPublishNews(w http.ResponseWriter, r *http.Request) {
	if err := s.news.Publish(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminQuotes(w http.ResponseWriter, r *http.Request) {
	qs, err := s.admin.Quotes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	type quoteView struct {
		domain.Quote
		ProjectTypeLabel string `json:"projectTypeLabel"`
	}
	out := make([]quoteView, 0, len(qs))
	for _, q := range qs {
		out = append(out, quoteView{Quote: q, ProjectTypeLabel: quote.Label(q.ProjectType)})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
