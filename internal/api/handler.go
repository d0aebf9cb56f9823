package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ashmere/reverie/internal/chat"
	"github.com/ashmere/reverie/internal/memory"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	chat   *chat.Service
	graph  *memory.Graph
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *chat.Service, graph *memory.Graph, logger *zap.Logger) *Handler {
	return &Handler{chat: svc, graph: graph, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/chat", h.postChat)

		r.Get("/sessions/{id}/atoms", h.listAtoms)
		r.Get("/sessions/{id}/recall", h.previewRecall)
		r.Post("/sessions/{id}/notes", h.postNote)

		r.Get("/graph/stats", h.graphStats)
		r.Post("/graph/followups", h.graphFollowUps)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "reverie"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *Handler) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := h.chat.Turn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed", zap.String("session", req.SessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listAtoms(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	atoms, err := h.chat.Atoms(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if atoms == nil {
		atoms = []*memory.Atom{}
	}
	writeJSON(w, http.StatusOK, atoms)
}

func (h *Handler) previewRecall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.chat.Preview(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type noteRequest struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// noteCategories are the categories callers may record directly.
// Conversation atoms only ever come from the turn loop.
var noteCategories = map[memory.Category]bool{
	memory.CategoryStewardNote:            true,
	memory.CategoryConsciousThought:       true,
	memory.CategorySubconsciousReflection: true,
	memory.CategoryAxiom:                  true,
}

func (h *Handler) postNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	cat := memory.Category(req.Category)
	if !noteCategories[cat] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid note category"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	atom, err := h.chat.Note(r.Context(), id, cat, req.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, atom)
}

func (h *Handler) graphStats(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.graph.Stats()
	writeJSON(w, http.StatusOK, map[string]int{"nodes": nodes, "edges": edges})
}

type followUpRequest struct {
	Category string   `json:"category"`
	Concepts []string `json:"concepts"`
	Limit    int      `json:"limit"`
}

func (h *Handler) graphFollowUps(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Concepts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "concepts are required"})
		return
	}
	if req.Category == "" {
		req.Category = string(memory.CategoryUserMessage)
	}
	if req.Limit <= 0 {
		req.Limit = memory.FollowUpLimit
	}

	probe := &memory.Atom{
		Category: memory.Category(req.Category),
		Concepts: req.Concepts,
	}
	out := h.graph.FollowUpConcepts([]*memory.Atom{probe}, req.Limit)
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"concepts": out})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
