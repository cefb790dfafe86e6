package server

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/pkg/helptext"
	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// envelope is the response shape shared by every HTTP endpoint.
type envelope struct {
	Status  string          `json:"status"`
	Type    string          `json:"type,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const maxSchemaBytes = 4 << 20

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetSchema(w, r)
	case http.MethodPost:
		s.handleSaveSchema(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, envelope{
			Status:  "error",
			Message: "method not allowed",
		})
	}
}

func (s *Server) handleGetSchema(w http.ResponseWriter, _ *http.Request) {
	data, err := s.loadWire()
	if err != nil {
		s.log.Error("read schema failed", zap.Error(err))
		writeJSON(w, http.StatusNotFound, envelope{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Type: "schema_update", Data: data})
}

func (s *Server) handleSaveSchema(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSchemaBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: err.Error()})
		return
	}
	if err := s.saveWire(body); err != nil {
		s.log.Error("save schema failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Schema saved successfully"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: "error", Message: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Finished successfully"})
	s.signalFinish()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"schema_file":   s.store.Path(),
		"schema_exists": s.store.Exists(),
	})
}

// loadWire reads the schema file and returns its wire form.
func (s *Server) loadWire() (json.RawMessage, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.MarshalWire()
}

// saveWire parses, optionally sanitizes, and persists an incoming document.
func (s *Server) saveWire(data []byte) error {
	doc, err := schema.ParseDocument(data)
	if err != nil {
		return err
	}
	if s.opts.Sanitize {
		doc = helptext.SanitizeDocument(doc)
	}
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.store.Save(doc)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
