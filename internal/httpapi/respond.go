package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"empirepilot/internal/news"
	"empirepilot/internal/pilot"
	"empirepilot/internal/quote"
	"empirepilot/internal/storage"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("malformed JSON body")

type errorBody struct {
	Error  string            `json:"error"`
	Step   int               `json:"step,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and hidden behind a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *quote.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Step: verr.Step, Fields: verr.Fields})
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, pilot.ErrNotFound),
		errors.Is(err, quote.ErrUnknownStep):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, errBadJSON),
		errors.Is(err, pilot.ErrEmptyMessage),
		errors.Is(err, pilot.ErrUnknownAction),
		errors.Is(err, news.ErrEmptyText),
		errors.Is(err, news.ErrInvalidImage),
		errors.Is(err, quote.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, pilot.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many messages, try again later"})
	case errors.Is(err, pilot.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorBody{Error: "duplicate message"})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
