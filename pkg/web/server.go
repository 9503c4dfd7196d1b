// Package web exposes the causal-graph engine over HTTP: graph
// inspection, adjustment-set queries and an SSE stream of graph reload
// events.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mhutton/causal-analyzer/pkg/analysis"
	"github.com/mhutton/causal-analyzer/pkg/dag"
	"github.com/mhutton/causal-analyzer/pkg/logging"
	"github.com/mhutton/causal-analyzer/pkg/pubsub"
)

// GraphData is the JSON shape of a causal graph.
type GraphData struct {
	Nodes []string   `json:"nodes"`
	Edges []dag.Edge `json:"edges"`
}

// QueryRequest names the treatment and outcome variables of a query.
type QueryRequest struct {
	Treatments []string `json:"treatments"`
	Outcomes   []string `json:"outcomes"`
}

// AdjustmentResponse is the answer to an adjustment-set query.
type AdjustmentResponse struct {
	Treatments          []string `json:"treatments"`
	Outcomes            []string `json:"outcomes"`
	AdjustmentSet       []string `json:"adjustment_set"`
	ProperCausalPathway []string `json:"proper_causal_pathway"`
}

// Server serves queries against the current causal graph snapshot. The
// snapshot is replaced wholesale on reload; queries always run against
// an immutable graph.
type Server struct {
	router    *mux.Router
	publisher pubsub.Publisher

	mu     sync.RWMutex
	graph  *dag.CausalGraph
	source string // DOT file the snapshot came from
}

// NewServer creates a server with no graph loaded yet.
func NewServer() *Server {
	publisher := pubsub.NewSSEPublisher()
	publisher.ConfigureTopic("graph", pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false, // late subscribers only need the current state
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: publisher,
	}
	s.setupRoutes()
	return s
}

// SetGraph swaps in a new graph snapshot and announces it.
func (s *Server) SetGraph(g *dag.CausalGraph, source string) {
	s.mu.Lock()
	s.graph = g
	s.source = source
	s.mu.Unlock()

	status := pubsub.GraphStatus{
		Source: source,
		Nodes:  g.NodeCount(),
		Edges:  g.EdgeCount(),
	}
	if err := s.publisher.Publish("graph", "loaded", status); err != nil {
		logging.Warn("failed to publish graph status", "error", err)
	}
}

// PublishReloadFailure announces a reload that kept the old snapshot.
func (s *Server) PublishReloadFailure(source string, cause error) {
	status := pubsub.GraphStatus{Source: source, Message: cause.Error()}
	if err := s.publisher.Publish("graph", "reload_failed", status); err != nil {
		logging.Warn("failed to publish reload failure", "error", err)
	}
}

func (s *Server) snapshot() *dag.CausalGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribeGraph).Methods("GET")

	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/graph/dot", s.handleGraphDOT).Methods("GET")
	s.router.HandleFunc("/api/adjustment-set", s.handleAdjustmentSet).Methods("POST")
	s.router.HandleFunc("/api/backdoor-graph", s.handleBackdoorGraph).Methods("POST")
	s.router.HandleFunc("/api/proper-backdoor-graph", s.handleProperBackdoorGraph).Methods("POST")

	s.router.Use(logging.RequestIDMiddleware)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g := s.snapshot()
	if g == nil {
		http.Error(w, "no graph loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, GraphData{Nodes: g.Nodes(), Edges: g.Edges()})
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	g := s.snapshot()
	if g == nil {
		http.Error(w, "no graph loaded", http.StatusServiceUnavailable)
		return
	}
	data, err := g.DOT()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.Write(data)
}

func (s *Server) handleAdjustmentSet(w http.ResponseWriter, r *http.Request) {
	g, req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	pathway, err := analysis.ProperCausalPathway(g, req.Treatments, req.Outcomes)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	set, err := analysis.MinimalAdjustmentSet(g, req.Treatments, req.Outcomes)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	pathwayNames := make([]string, 0, len(pathway))
	for n := range pathway {
		pathwayNames = append(pathwayNames, n)
	}
	writeJSON(w, AdjustmentResponse{
		Treatments:          req.Treatments,
		Outcomes:            req.Outcomes,
		AdjustmentSet:       set,
		ProperCausalPathway: sorted(pathwayNames),
	})
}

func (s *Server) handleBackdoorGraph(w http.ResponseWriter, r *http.Request) {
	g, req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	bg, err := analysis.BackdoorGraph(g, req.Treatments)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, GraphData{Nodes: bg.Nodes(), Edges: bg.Edges()})
}

func (s *Server) handleProperBackdoorGraph(w http.ResponseWriter, r *http.Request) {
	g, req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	pbg, err := analysis.ProperBackdoorGraph(g, req.Treatments, req.Outcomes)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, GraphData{Nodes: pbg.Nodes(), Edges: pbg.Edges()})
}

func (s *Server) handleSubscribeGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Establish the stream before any event arrives.
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), "graph")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.ErrorContext(r.Context(), "writing SSE event", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// decodeQuery parses the request body and fetches the current snapshot.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*dag.CausalGraph, QueryRequest, bool) {
	g := s.snapshot()
	if g == nil {
		http.Error(w, "no graph loaded", http.StatusServiceUnavailable)
		return nil, QueryRequest{}, false
	}
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil, QueryRequest{}, false
	}
	return g, req, true
}

// writeQueryError maps the engine's error taxonomy to HTTP statuses:
// unknown variables are 404, unanswerable queries are 422, everything
// else is a 400.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var unknownErr *dag.UnknownNodeError
	var noSetErr *analysis.NoAdjustmentSetError
	switch {
	case errors.As(err, &unknownErr):
		status = http.StatusNotFound
	case errors.As(err, &noSetErr):
		status = http.StatusUnprocessableEntity
	}
	logging.DebugContext(r.Context(), "query rejected", "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}

// Start runs the server on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
