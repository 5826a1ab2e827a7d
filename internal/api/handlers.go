package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"ShieldAI/internal/ml"
	"ShieldAI/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ingestFlowHandler accepts one flow record and returns the scored flow.
func (h *Handler) ingestFlowHandler(w http.ResponseWriter, r *http.Request) {
	var rec model.FlowRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to decode flow record: %w", err))
		return
	}

	flow, err := h.pipeline.Ingest(&rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// listFlowsHandler returns the most recent scored flows for a domain.
func (h *Handler) listFlowsHandler(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("domain query parameter is required"))
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flows": h.flows.RecentFlows(domain, limit),
	})
}

type blockRequest struct {
	Domain          string  `json:"domain"`
	SrcIP           string  `json:"src_ip"`
	DurationSeconds float64 `json:"duration_seconds"`
	Reason          string  `json:"reason"`
	Author          string  `json:"author"`
}

// createBlockHandler is the operator-driven manual block entrypoint.
func (h *Handler) createBlockHandler(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to decode block request: %w", err))
		return
	}
	if req.Domain == "" || req.SrcIP == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("domain and src_ip are required"))
		return
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 3600
	}
	if req.Author == "" {
		req.Author = "operator"
	}

	duration := time.Duration(req.DurationSeconds * float64(time.Second))
	rule := h.controller.ManualBlock(req.Domain, req.SrcIP, duration, req.Reason, req.Author)
	h.events.Publish(model.Event{Type: model.EventBlock, Payload: rule})
	writeJSON(w, http.StatusOK, rule)
}

// deleteBlockHandler revokes a rule by id.
func (h *Handler) deleteBlockHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	author := r.URL.Query().Get("author")
	if author == "" {
		author = "operator"
	}
	if !h.controller.ManualUnblock(id, author) {
		writeError(w, http.StatusNotFound, fmt.Errorf("block rule %s not found or inactive", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unblocked", "id": id})
}

// listBlocksHandler returns the active rules, optionally per domain.
func (h *Handler) listBlocksHandler(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": h.blocks.ListActive(domain, time.Now()),
	})
}

// blockHistoryHandler returns all rules including inactive ones, for audit.
func (h *Handler) blockHistoryHandler(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": h.blocks.History(domain, limit),
	})
}

// listAlertsHandler returns alerts, optionally filtered by handled state.
func (h *Handler) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	var handled *bool
	if v := r.URL.Query().Get("handled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid handled %q", v))
			return
		}
		handled = &b
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": h.alerts.ListAlerts(domain, handled),
	})
}

// handleAlertHandler flips an alert's handled flag.
func (h *Handler) handleAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.alerts.MarkHandled(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("alert %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "handled", "id": id})
}

type trainRequest struct {
	Features [][]float64 `json:"features"`
	Labels   []int       `json:"labels"`
	// WeakLabel opts in to heuristic byte-rate labeling of an unlabeled
	// table. Off by default; the resulting report is marked weakly
	// labeled.
	WeakLabel bool `json:"weak_label"`
}

// trainHandler accepts a labeled feature table and retrains the
// ensemble.
func (h *Handler) trainHandler(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to decode training request: %w", err))
		return
	}

	var ds *ml.Dataset
	if req.WeakLabel {
		ds = ml.WeakLabelByteRate(req.Features)
	} else {
		ds = &ml.Dataset{Features: req.Features, Labels: req.Labels}
	}

	report, err := h.ensemble.Train(ds)
	if err != nil {
		if errors.Is(err, ml.ErrInsufficientData) || errors.Is(err, ml.ErrMissingLabels) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// streamHandler serves the live event feed over server-sent events.
func (h *Handler) streamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.events.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case ev := <-sub.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error marshalling event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler serves the live event feed over a WebSocket.
func (h *Handler) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.events.Subscribe()
	defer sub.Close()

	// Reader goroutine exists only to detect the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sub.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error marshalling event: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-sub.Done():
			return
		}
	}
}
