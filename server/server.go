package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"policyqa/internal/models"
	"policyqa/internal/qa"
	"policyqa/pkg/logging"
)

// Config represents the HTTP server configuration.
type Config struct {
	Port        string
	MaxFileSize int64
}

// Server exposes the Q&A pipeline over HTTP.
type Server struct {
	config Config
	engine *qa.Engine
	logger *logging.Logger
}

func New(config Config, engine *qa.Engine, logger *logging.Logger) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.MaxFileSize == 0 {
		config.MaxFileSize = 10 << 20
	}
	if logger == nil {
		logger = logging.NewLogger("info")
	}

	return &Server{
		config: config,
		engine: engine,
		logger: logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/documents/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/documents/embed", s.handleEmbed).Methods(http.MethodPost)
	api.HandleFunc("/documents/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)

	return r
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "port", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Welcome to the Insurance Q&A System!",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.config.MaxFileSize {
		s.respondError(w, http.StatusBadRequest, "file size exceeds the upload limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxFileSize)

	if err := r.ParseMultipartForm(s.config.MaxFileSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.respondError(w, http.StatusBadRequest, "file size exceeds the upload limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	if len(data) == 0 {
		s.respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	result, err := s.engine.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Embed(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query models.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if query.TopK < 0 {
		s.respondError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}

	result, err := s.engine.Query(r.Context(), query)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// respondEngineError maps pipeline error kinds onto HTTP statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch qa.ErrKind(err) {
	case qa.KindInputFormat:
		status = http.StatusBadRequest
	case qa.KindNotReady:
		status = http.StatusNotFound
	case qa.KindProvider:
		status = http.StatusBadGateway
	}

	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("request error", "status", status, "error", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}
