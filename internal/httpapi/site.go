package httpapi

import (
	"net/http"
	"strconv"

	"empirepilot/internal/domain"
	"empirepilot/internal/news"
	"empirepilot/internal/quote"
	"empirepilot/internal/render"
)

func (s *Server) quoteOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, quote.Catalog())
}

func (s *Server) validateQuoteStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		s.writeError(w, r, quote.ErrUnknownStep)
		return
	}
	var sub quote.Submission
	if err := decodeJSON(r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := quote.ValidateStep(step, sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": step, "valid": true})
}

func (s *Server) submitQuote(w http.ResponseWriter, r *http.Request) {
	var sub quote.Submission
	if err := decodeJSON(r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.quotes.Submit(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

type postView struct {
	domain.NewsPost
	HTML string `json:"html"`
}

func (s *Server) viewPosts(posts []domain.NewsPost) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		html, err := render.HTML(p.EnhancedText)
		if err != nil {
			s.logger.Warn().Err(err).Str("post_id", p.ID).Msg("render post failed")
		}
		out = append(out, postView{NewsPost: p, HTML: html})
	}
	return out
}

func (s *Server) listNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := s.news.List(r.Context(), news.Filter{Search: q.Get("search"), Tag: q.Get("tag")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewPosts(posts))
}

func (s *Server) newsTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.news.Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) siteContent(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("section") {
	case "company":
		writeJSON(w, http.StatusOK, s.site.Company())
	case "services":
		writeJSON(w, http.StatusOK, s.site.Services())
	case "projects":
		writeJSON(w, http.StatusOK, map[string]any{
			"categories": s.site.ProjectCategories(),
			"projects":   s.site.Projects(r.URL.Query().Get("category")),
		})
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	}
}
