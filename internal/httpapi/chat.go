package httpapi

import (
	"net"
	"net/http"
	"time"

	"empirepilot/internal/domain"
	"empirepilot/internal/pilot"
	"empirepilot/internal/render"
)

type messageView struct {
	ID        string       `json:"id"`
	Role      domain.Role  `json:"role"`
	Content   string       `json:"content"`
	HTML      string       `json:"html"`
	Timestamp time.Time    `json:"timestamp"`
	Lead      *domain.Lead `json:"leadData,omitempty"`
}

type sessionView struct {
	SessionID    string                    `json:"sessionId"`
	Status       domain.ConversationStatus `json:"status"`
	Messages     []messageView             `json:"messages"`
	Lead         domain.Lead               `json:"lead"`
	Typing       bool                      `json:"typing"`
	LastUpdated  time.Time                 `json:"lastUpdated"`
	QuickActions []pilot.QuickAction       `json:"quickActions"`
}

func (s *Server) viewMessage(m domain.Message) messageView {
	html, err := render.HTML(m.Content)
	if err != nil {
		s.logger.Warn().Err(err).Str("message_id", m.ID).Msg("render message failed")
	}
	return messageView{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		HTML:      html,
		Timestamp: m.Timestamp,
		Lead:      m.Lead,
	}
}

func (s *Server) viewMessages(msgs []domain.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.viewMessage(m))
	}
	return out
}

func (s *Server) viewTranscript(t pilot.Transcript) sessionView {
	return sessionView{
		SessionID:    t.Conversation.ID,
		Status:       t.Conversation.Status,
		Messages:     s.viewMessages(t.Conversation.Messages),
		Lead:         t.Lead,
		Typing:       t.Typing,
		LastUpdated:  t.Conversation.LastUpdated,
		QuickActions: pilot.QuickActions(),
	}
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, created, err := s.pilot.Open(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.pilot.Transcript(r.Context(), conv.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.viewTranscript(t))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	t, err := s.pilot.Transcript(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewTranscript(t))
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.allowClient(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.pilot.Send(r.Context(), r.PathValue("id"), req.Text, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.viewMessage(m))
}

func (s *Server) quickAction(w http.ResponseWriter, r *http.Request) {
	if err := s.allowClient(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.pilot.QuickAction(r.Context(), r.PathValue("id"), pilot.Action(r.PathValue("action")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.viewMessage(m))
}

func (s *Server) listActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pilot.QuickActions())
}

// allowClient applies the per-address cap, so minting new session ids does
// not reset a client's hourly budget.
func (s *Server) allowClient(r *http.Request) error {
	if s.limiter == nil {
		return nil
	}
	addr := clientAddr(r)
	allowed, used, _, err := s.limiter.Allow(r.Context(), "client:"+addr, time.Now())
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Warn().Str("remote_addr", addr).Int64("used", used).Msg("client rate limited")
		return pilot.ErrRateLimited
	}
	return nil
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
