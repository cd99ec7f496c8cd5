// Package devserver is an in-memory stand-in for the RAG backend. It speaks
// the same REST surface as the real service but performs no retrieval or
// inference; chat replies are canned.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"ragdesk/internal/api"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	DefaultModel   = "gpt-4o-mini"
	maxUploadBytes = 32 << 20
)

// DefaultRAGs are seeded on start and cannot be deleted.
var DefaultRAGs = []struct{ ID, Name string }{
	{ID: "ng911", Name: "NG911"},
	{ID: "arlington_zoning", Name: "Arlington Zoning RAG"},
}

type rag struct {
	ws      api.Workspace
	indexed bool
}

type Server struct {
	// Delay is applied before every /api response.
	Delay time.Duration
	// FailChat makes the chat endpoint answer with an application error.
	FailChat bool

	mu     sync.Mutex
	order  []string
	rags   map[string]*rag
	docSeq int
	log    *zap.Logger
}

func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{rags: make(map[string]*rag), log: log}
	for _, d := range DefaultRAGs {
		s.add(api.Workspace{ID: d.ID, Name: d.Name, Model: DefaultModel})
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	a := r.PathPrefix("/api/rags").Subrouter()
	a.HandleFunc("", s.listRAGs).Methods(http.MethodGet)
	a.HandleFunc("", s.createRAG).Methods(http.MethodPost)
	a.HandleFunc("/{ragId}", s.deleteRAG).Methods(http.MethodDelete)
	a.HandleFunc("/{ragId}/documents", s.uploadDocuments).Methods(http.MethodPost)
	a.HandleFunc("/{ragId}/documents/{docId}", s.deleteDocument).Methods(http.MethodDelete)
	a.HandleFunc("/{ragId}/chat", s.chat).Methods(http.MethodPost)
	a.HandleFunc("/{ragId}/index", s.buildIndex).Methods(http.MethodPost)
	a.HandleFunc("/{ragId}/storage_status", s.storageStatus).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.Delay > 0 && strings.HasPrefix(r.URL.Path, "/api/") {
			select {
			case <-time.After(s.Delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
		s.log.Debug("devserver request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) add(ws api.Workspace) {
	if ws.Documents == nil {
		ws.Documents = []api.Document{}
	}
	if ws.Messages == nil {
		ws.Messages = []api.ChatMessage{}
	}
	s.order = append(s.order, ws.ID)
	s.rags[ws.ID] = &rag{ws: ws}
}

func (s *Server) listRAGs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]api.Workspace, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshot(s.rags[id].ws))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRAG(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}
	id := slugify(name)
	if id == "" {
		writeError(w, http.StatusBadRequest, "name must contain letters or digits")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rags[id]; exists {
		writeError(w, http.StatusConflict, "RAG ID already exists")
		return
	}
	s.add(api.Workspace{ID: id, Name: name, Model: model})
	writeJSON(w, http.StatusCreated, snapshot(s.rags[id].ws))
}

func (s *Server) deleteRAG(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ragId"]
	for _, d := range DefaultRAGs {
		if d.ID == id {
			writeError(w, http.StatusConflict, "Cannot delete default RAG")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rags[id]; !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	delete(s.rags, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ragId"]
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.rags[id]
	if !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	for _, fh := range headers {
		name := filepath.Base(strings.TrimSpace(fh.Filename))
		if name == "" || name == "." || name == "/" {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		replaced := false
		for i := range rg.ws.Documents {
			if rg.ws.Documents[i].Name == name {
				rg.ws.Documents[i].Size = fh.Size
				replaced = true
				break
			}
		}
		if !replaced {
			s.docSeq++
			rg.ws.Documents = append(rg.ws.Documents, api.Document{
				ID:   fmt.Sprintf("d%d", s.docSeq),
				Name: name,
				Size: fh.Size,
			})
		}
	}
	writeJSON(w, http.StatusOK, snapshot(rg.ws))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.rags[vars["ragId"]]
	if !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	for i, d := range rg.ws.Documents {
		if d.ID == vars["docId"] {
			rg.ws.Documents = append(rg.ws.Documents[:i], rg.ws.Documents[i+1:]...)
			writeJSON(w, http.StatusOK, snapshot(rg.ws))
			return
		}
	}
	writeError(w, http.StatusNotFound, "File not found")
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ragId"]
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.rags[id]
	if !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	if s.FailChat {
		writeJSON(w, http.StatusOK, map[string]string{"error": "chat is disabled on this dev server"})
		return
	}
	if !rg.indexed {
		writeJSON(w, http.StatusOK, map[string]string{"error": "RAG index not found. Please upload and index documents first."})
		return
	}

	reply := cannedReply(rg.ws, req.Message)
	rg.ws.Messages = append(rg.ws.Messages,
		api.ChatMessage{Role: api.RoleUser, Content: req.Message},
		api.ChatMessage{Role: api.RoleAssistant, Content: reply},
	)
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) buildIndex(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ragId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.rags[id]
	if !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	if len(rg.ws.Documents) == 0 {
		writeError(w, http.StatusInternalServerError, "No files found in data directory")
		return
	}
	rg.indexed = true
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Index built successfully with %d documents", len(rg.ws.Documents)),
	})
}

func (s *Server) storageStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ragId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.rags[id]
	if !ok {
		writeError(w, http.StatusNotFound, "RAG not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_storage": rg.indexed})
}

func cannedReply(ws api.Workspace, question string) string {
	names := make([]string, 0, len(ws.Documents))
	for _, d := range ws.Documents {
		names = append(names, "`"+d.Name+"`")
	}
	return fmt.Sprintf(
		"**%s** (%s) has %d indexed document(s): %s.\n\nThis dev server has no retrieval backend, so it cannot answer:\n\n> %s",
		ws.Name, ws.Model, len(ws.Documents), strings.Join(names, ", "), strings.TrimSpace(question),
	)
}

// snapshot copies ws so handlers never hand out slices they keep mutating.
func snapshot(ws api.Workspace) api.Workspace {
	out := ws
	out.Documents = append([]api.Document{}, ws.Documents...)
	out.Messages = append([]api.ChatMessage{}, ws.Messages...)
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
