package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/mhutton/causal-analyzer/pkg/dag"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	g, err := dag.ParseDOT([]byte(`digraph {
		Age -> Vaccine;
		Age -> Infections;
		Vaccine -> Infections;
	}`))
	if err != nil {
		t.Fatalf("ParseDOT failed: %v", err)
	}

	s := NewServer()
	s.SetGraph(g, "test.dot")
	return s
}

func postQuery(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleGraph(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest("GET", "/api/graph", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var data GraphData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if !reflect.DeepEqual(data.Nodes, []string{"Age", "Infections", "Vaccine"}) {
		t.Errorf("Nodes = %v", data.Nodes)
	}
	if len(data.Edges) != 3 {
		t.Errorf("Expected 3 edges, got %d", len(data.Edges))
	}
}

func TestHandleGraphNoSnapshot(t *testing.T) {
	s := NewServer()

	req := httptest.NewRequest("GET", "/api/graph", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}

func TestHandleGraphDOT(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest("GET", "/api/graph/dot", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Vaccine") {
		t.Errorf("DOT output missing nodes: %q", rec.Body.String())
	}
}

func TestHandleAdjustmentSet(t *testing.T) {
	s := testServer(t)

	rec := postQuery(t, s, "/api/adjustment-set",
		`{"treatments": ["Vaccine"], "outcomes": ["Infections"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp AdjustmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if !reflect.DeepEqual(resp.AdjustmentSet, []string{"Age"}) {
		t.Errorf("AdjustmentSet = %v, want [Age]", resp.AdjustmentSet)
	}
	if len(resp.ProperCausalPathway) != 0 {
		t.Errorf("ProperCausalPathway = %v, want empty", resp.ProperCausalPathway)
	}
}

func TestHandleAdjustmentSetUnknownVariable(t *testing.T) {
	s := testServer(t)

	rec := postQuery(t, s, "/api/adjustment-set",
		`{"treatments": ["Vaccine"], "outcomes": ["Mortality"]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleAdjustmentSetUnanswerable(t *testing.T) {
	g := dag.New()
	if err := g.AddEdge("T", "O"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	s := NewServer()
	s.SetGraph(g, "direct.dot")

	rec := postQuery(t, s, "/api/adjustment-set",
		`{"treatments": ["T"], "outcomes": ["O"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want 422; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleAdjustmentSetBadBody(t *testing.T) {
	s := testServer(t)

	rec := postQuery(t, s, "/api/adjustment-set", `{"treatments": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestHandleBackdoorGraph(t *testing.T) {
	s := testServer(t)

	rec := postQuery(t, s, "/api/backdoor-graph", `{"treatments": ["Vaccine"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var data GraphData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	for _, e := range data.Edges {
		if e.From == "Vaccine" {
			t.Errorf("Backdoor graph retains treatment edge %v", e)
		}
	}
}

func TestHandleProperBackdoorGraph(t *testing.T) {
	s := testServer(t)

	rec := postQuery(t, s, "/api/proper-backdoor-graph",
		`{"treatments": ["Vaccine"], "outcomes": ["Infections"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var data GraphData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	want := []dag.Edge{
		{From: "Age", To: "Infections"},
		{From: "Age", To: "Vaccine"},
	}
	if !reflect.DeepEqual(data.Edges, want) {
		t.Errorf("Edges = %v, want %v", data.Edges, want)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest("GET", "/api/graph", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated X-Request-ID header")
	}
}
