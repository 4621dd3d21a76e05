// ABOUTME: HTTP JSON API for the UI layer
// ABOUTME: Serves inbox pages, message bodies, and summaries; owner comes from a request header
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/harperreed/sift/auth"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/summarize"
)

// ownerHeader carries the authenticated owner id. Session handling lives in
// the external auth provider; by the time a request reaches this server the
// id is already resolved.
const ownerHeader = "X-Sift-Owner"

type Server struct {
	mail      *mailbox.Service
	summaries *summarize.Service
	mux       *http.ServeMux
}

func NewServer(mail *mailbox.Service, summaries *summarize.Service) *Server {
	s := &Server{
		mail:      mail,
		summaries: summaries,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /inbox", s.handleInbox)
	s.mux.HandleFunc("GET /message/{id}", s.handleMessage)
	s.mux.HandleFunc("GET /message/{id}/summary", s.handleSummary)
	s.mux.HandleFunc("GET /thread/{id}", s.handleThread)
	s.mux.HandleFunc("POST /cache/clear", s.handleClearCache)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting sift API at http://localhost%s", addr)
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	page := intParam(r, "page", 1)
	pageSize := intParam(r, "page_size", 25)

	result, err := s.mail.FetchPage(r.Context(), owner, query, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	msg, err := s.mail.GetMessage(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, msg)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	thread, err := s.mail.GetThread(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, thread)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	summary, err := s.summaries.SummarizeMessage(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}
	s.mail.ClearCache()
	writeJSON(w, map[string]bool{"cleared": true})
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		http.Error(w, `{"error":"missing owner header"}`, http.StatusUnauthorized)
		return "", false
	}
	return owner, true
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: failed to encode response: %v", err)
	}
}

// writeError maps core failures onto HTTP statuses: terminal auth sends the
// user back through consent (401), transient upstream failures are
// retryable (502), everything else is a plain failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	retryable := false

	switch {
	case errors.Is(err, auth.ErrAuthExpiredTerminal):
		status = http.StatusUnauthorized
	case mailbox.IsRetryable(err):
		status = http.StatusBadGateway
		retryable = true
	default:
		var ue *mailbox.UpstreamError
		if errors.As(err, &ue) {
			status = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     err.Error(),
		"retryable": retryable,
	})
}
