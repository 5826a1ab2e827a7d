// Package api exposes the ingestion, mitigation, query, training and
// event-stream entrypoints over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ShieldAI/internal/blocklist"
	"ShieldAI/internal/config"
	"ShieldAI/internal/event"
	"ShieldAI/internal/mitigation"
	"ShieldAI/internal/ml"
	"ShieldAI/internal/model"
	"ShieldAI/internal/pipeline"
)

// Server is the HTTP front of the engine.
type Server struct {
	httpServer *http.Server
}

// Handler holds the dependencies for the API handlers.
type Handler struct {
	pipeline   *pipeline.Pipeline
	controller *mitigation.Controller
	blocks     *blocklist.Store
	flows      model.FlowStore
	alerts     model.AlertStore
	ensemble   *ml.Ensemble
	events     *event.Broadcaster
}

// NewRouter wires the API routes. Split from NewServer so tests can
// drive the routes through httptest.
func NewRouter(p *pipeline.Pipeline, c *mitigation.Controller,
	blocks *blocklist.Store, flows model.FlowStore, alerts model.AlertStore,
	ensemble *ml.Ensemble, events *event.Broadcaster) *mux.Router {

	h := &Handler{
		pipeline:   p,
		controller: c,
		blocks:     blocks,
		flows:      flows,
		alerts:     alerts,
		ensemble:   ensemble,
		events:     events,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/flows", h.ingestFlowHandler).Methods("POST")
	r.HandleFunc("/api/v1/flows", h.listFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/blocks", h.createBlockHandler).Methods("POST")
	r.HandleFunc("/api/v1/blocks", h.listBlocksHandler).Methods("GET")
	r.HandleFunc("/api/v1/blocks/history", h.blockHistoryHandler).Methods("GET")
	r.HandleFunc("/api/v1/blocks/{id}", h.deleteBlockHandler).Methods("DELETE")
	r.HandleFunc("/api/v1/alerts", h.listAlertsHandler).Methods("GET")
	r.HandleFunc("/api/v1/alerts/{id}/handle", h.handleAlertHandler).Methods("POST")
	r.HandleFunc("/api/v1/train", h.trainHandler).Methods("POST")
	r.HandleFunc("/api/v1/stream", h.streamHandler).Methods("GET")
	r.HandleFunc("/api/v1/ws", h.websocketHandler).Methods("GET")
	return r
}

// NewServer creates the HTTP server for the engine daemon.
func NewServer(cfg config.APIConfig, p *pipeline.Pipeline, c *mitigation.Controller,
	blocks *blocklist.Store, flows model.FlowStore, alerts model.AlertStore,
	ensemble *ml.Ensemble, events *event.Broadcaster) *Server {

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: NewRouter(p, c, blocks, flows, alerts, ensemble, events),
		},
	}
}

// Start runs the HTTP server in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("API server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", s.httpServer.Addr, err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}
