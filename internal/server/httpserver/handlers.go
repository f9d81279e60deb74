package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type createLinkRequest struct {
	Username  string     `json:"username"`
	Max       int        `json:"max"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type createLinkResponse struct {
	URL string `json:"url"`
}

type redeemResponse struct {
	Subject string `json:"subject"`
}

type errorResponse struct {
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Max == 0 {
		req.Max = 1
	}

	if fields := s.validateCreateLink(req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return
	}

	tok, err := s.links.IssueLink(r.Context(), req.Username, req.Max, req.ExpiresAt)
	if err != nil {
		s.requestLogger(r.Context()).Error(r.Context(), "link issuance failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, createLinkResponse{
		URL: fmt.Sprintf("%s://%s/s/%s", scheme, r.Host, tok),
	})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	subject, ok, err := s.links.RedeemLink(r.Context(), tok)
	if err != nil {
		s.requestLogger(r.Context()).Error(r.Context(), "link redemption failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
		return
	}
	if !ok {
		// one opaque outcome for every denial, whatever the internal reason
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "invalid or expired link"})
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{Subject: subject})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
