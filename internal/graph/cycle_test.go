package graph

import (
	"reflect"
	"strings"
	"testing"
)

func TestCycleError_ErrorMessage(t *testing.T) {
	info := &CycleInfo{
		TotalNodes:        5,
		ProcessedNodes:    0,
		UnprocessedNodes:  []string{"A", "B", "C", "D"},
		CycleParticipants: []string{"A", "B"},
		CyclePath:         []string{"A", "B", "A"},
	}
	msg := (&CycleError{Info: info}).Error()

	checks := []string{
		"4 of 5 types could not be processed",
		"Cycle path: A -> B -> A",
		"Types in cycle: A, B",
		"Types blocked by cycle: C, D",
	}
	for _, want := range checks {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestCycleError_NoBlockedSection(t *testing.T) {
	info := &CycleInfo{
		TotalNodes:        2,
		UnprocessedNodes:  []string{"A", "B"},
		CycleParticipants: []string{"A", "B"},
	}
	msg := (&CycleError{Info: info}).Error()

	if strings.Contains(msg, "blocked") {
		t.Errorf("expected no blocked section, got:\n%s", msg)
	}
}

func TestDetectIncompleteProcessing(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"leaf", "a", "b", "blocked"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("leaf", "a", EdgeBase, "")
	g.AddEdge("a", "b", EdgeMember, "next")
	g.AddEdge("b", "a", EdgeMember, "prev")
	g.AddEdge("b", "blocked", EdgeBase, "")

	info := g.DetectIncompleteProcessing()
	if info == nil {
		t.Fatal("expected cycle info")
	}

	if info.TotalNodes != 4 || info.ProcessedNodes != 1 {
		t.Errorf("expected 1 of 4 processed, got %d of %d", info.ProcessedNodes, info.TotalNodes)
	}
	if !reflect.DeepEqual(info.UnprocessedNodes, []string{"a", "b", "blocked"}) {
		t.Errorf("unexpected unprocessed nodes: %v", info.UnprocessedNodes)
	}
	if !reflect.DeepEqual(info.CycleParticipants, []string{"a", "b"}) {
		t.Errorf("unexpected cycle participants: %v", info.CycleParticipants)
	}
	if !reflect.DeepEqual(info.CyclePath, []string{"a", "b", "a"}) {
		t.Errorf("unexpected cycle path: %v", info.CyclePath)
	}
}

func TestDetectIncompleteProcessing_Acyclic(t *testing.T) {
	g, err := BuildFromTypes(sample(), nil)
	if err != nil {
		t.Fatalf("BuildFromTypes failed: %v", err)
	}
	if info := g.DetectIncompleteProcessing(); info != nil {
		t.Errorf("expected no cycle info, got %+v", info)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("expected valid graph, got %v", err)
	}
}

func TestFindCyclePath_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("node", nil)
	g.AddEdge("node", "node", EdgeMember, "self")

	path := g.FindCyclePath("node", map[string]bool{"node": true})
	if !reflect.DeepEqual(path, []string{"node", "node"}) {
		t.Errorf("expected [node node], got %v", path)
	}

	if err := g.Validate(); err == nil {
		t.Error("expected self loop to fail validation")
	}
}

func TestFindCyclePath_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddEdge("a", "b", EdgeBase, "")

	if path := g.FindCyclePath("a", map[string]bool{"a": true, "b": true}); path != nil {
		t.Errorf("expected nil path, got %v", path)
	}
}
