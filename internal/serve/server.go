package serve

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aekrylov/kadrec/internal/model"
)

// Server is the HTTP front of a Service. Routes live under /api/v1.
type Server struct {
	svc    *Service
	topN   int
	router *http.ServeMux
}

// NewServer builds the route table. defaultTopN bounds result lists when a
// request does not say how many it wants.
func NewServer(svc *Service, defaultTopN int) *Server {
	s := &Server{svc: svc, topN: defaultTopN, router: http.NewServeMux()}
	s.router.HandleFunc("GET /api/v1/similar", s.handleSimilarDoc)
	s.router.HandleFunc("POST /api/v1/similar-text", s.handleSimilarText)
	s.router.HandleFunc("POST /api/v1/ratings", s.handleRating)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	return s
}

// Handler exposes the route table, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	slog.Info("serving similarity API", "addr", addr, "models", s.svc.Kinds())
	return http.ListenAndServe(addr, s.router)
}

type errorResponse struct {
	Error string `json:"error"`
}

type similarResponse struct {
	Model   string   `json:"model"`
	Results []string `json:"results"`
}

type statusResponse struct {
	Documents int      `json:"documents"`
	Models    []string `json:"models"`
}

func (s *Server) handleSimilarDoc(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	if docID == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "query parameter 'doc' is required"})
		return
	}
	kind := s.kindParam(r.URL.Query().Get("model"))
	topN := s.topNParam(r.URL.Query().Get("n"))

	ids, err := s.svc.SimilarForDocument(kind, docID, topN)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, similarResponse{Model: string(kind), Results: emptyNotNil(ids)})
}

func (s *Server) handleSimilarText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Model string `json:"model"`
		N     int    `json:"n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Text == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "field 'text' is required"})
		return
	}
	kind := s.kindParam(req.Model)
	topN := s.topN
	if req.N > 0 {
		topN = req.N
	}

	ids, err := s.svc.SimilarForText(kind, req.Text, topN)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, similarResponse{Model: string(kind), Results: emptyNotNil(ids)})
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID            string `json:"doc_id"`
		RecommendationID string `json:"recommendation_id"`
		Value            int    `json:"value"`
		Reporter         string `json:"reporter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.DocID == "" || req.RecommendationID == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "fields 'doc_id' and 'recommendation_id' are required"})
		return
	}

	if err := s.svc.RecordRating(r.Context(), req.DocID, req.RecommendationID, req.Value, req.Reporter); err != nil {
		s.serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	kinds := s.svc.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	jsonResponse(w, http.StatusOK, statusResponse{Documents: s.svc.CorpusSize(), Models: names})
}

// kindParam defaults to LSI when the request leaves the model unspecified.
func (s *Server) kindParam(raw string) model.Kind {
	if raw == "" {
		return model.KindLSI
	}
	return model.Kind(raw)
}

func (s *Server) topNParam(raw string) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return s.topN
}

func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownDocument):
		jsonResponse(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrUnknownModel):
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// emptyNotNil keeps zero-candidate answers as [] in JSON rather than null.
func emptyNotNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func jsonResponse(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
