package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"storefront-harvester/harvester"
	"storefront-harvester/internal/types"
)

// harvestRequest is the POST /harvest body.
type harvestRequest struct {
	Origin     string   `json:"origin"`
	Kind       string   `json:"kind"`
	Categories []string `json:"categories,omitempty"`
	Token      string   `json:"token,omitempty"`
}

type apiResponse struct {
	Success bool                 `json:"success"`
	Data    *types.HarvestResult `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Server exposes the harvester over HTTP for the extension popup and other
// local companions.
type Server struct {
	logger *logrus.Logger
	config *types.Config
}

// NewServer creates the API server with config from the environment.
func NewServer() *Server {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Server{
		logger: logger,
		config: types.DefaultConfig(),
	}
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Origin == "" {
		s.sendError(w, "origin is required", http.StatusBadRequest)
		return
	}
	kind := types.Kind(req.Kind)
	if kind == "" {
		kind = types.KindProducts
	}
	if kind != types.KindProducts && kind != types.KindCollections {
		s.sendError(w, "kind must be products or collections", http.StatusBadRequest)
		return
	}

	s.logger.Infof("harvest request: %s %s", req.Origin, kind)

	// Each request gets its own session so one caller's platform cache
	// never leaks into another's.
	config := *s.config
	config.BearerToken = req.Token
	h := harvester.New(&config, s.logger)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.Harvest(ctx, req.Origin, kind, harvester.Options{CategoryFilter: req.Categories})
	if err != nil {
		s.logger.Warnf("harvest failed for %s: %v", req.Origin, err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, apiResponse{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

// Router builds the HTTP handler with CORS for browser-extension callers.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/harvest", s.handleHarvest).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	server := NewServer()
	server.logger.Infof("Starting API server on port %s", port)
	server.logger.Info("Available endpoints:")
	server.logger.Info("  POST /harvest - Harvest products or collections from an origin")
	server.logger.Info("  GET  /health  - Health check")

	log.Fatal(http.ListenAndServe(":"+port, server.Router()))
}
