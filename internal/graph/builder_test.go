package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/dbsmedya/layoutdiff/internal/compare"
	"github.com/dbsmedya/layoutdiff/internal/layout"
)

func mergedScalar(id string) compare.MergedType {
	return compare.MergedType{
		ID:               id,
		Descriptor:       &layout.TypeDescriptor{Label: strings.TrimPrefix(id, "t_"), Encoding: "inplace", NumberOfBytes: "32"},
		OldNumberOfBytes: uint256.NewInt(32),
		NewNumberOfBytes: uint256.NewInt(32),
	}
}

func mergedArray(id, base string) compare.MergedType {
	return compare.MergedType{
		ID:               id,
		Descriptor:       &layout.TypeDescriptor{Label: "array", Encoding: "dynamic_array", NumberOfBytes: "32", Base: base},
		OldNumberOfBytes: uint256.NewInt(32),
		NewNumberOfBytes: uint256.NewInt(32),
		Base:             base,
	}
}

func mergedStruct(id string, members map[string]string, order ...string) compare.MergedType {
	mt := compare.MergedType{
		ID:               id,
		Descriptor:       &layout.TypeDescriptor{Label: "struct", Encoding: "inplace", NumberOfBytes: "64"},
		OldNumberOfBytes: uint256.NewInt(64),
		NewNumberOfBytes: uint256.NewInt(64),
		Members:          []compare.MergedMember{},
	}
	for _, label := range order {
		mt.Members = append(mt.Members, compare.MergedMember{
			Member: layout.Member{Label: label, Type: members[label], Slot: "0"},
		})
	}
	return mt
}

// sample mirrors extractor output for struct S { uint256 a; uint8[] list; }.
func sample() []compare.MergedType {
	return []compare.MergedType{
		mergedScalar("t_uint256"),
		mergedScalar("t_uint8"),
		mergedArray("t_array(t_uint8)dyn_storage", "t_uint8"),
		mergedStruct("t_struct(S)_storage",
			map[string]string{"a": "t_uint256", "list": "t_array(t_uint8)dyn_storage"},
			"a", "list"),
	}
}

func TestBuildFromTypes(t *testing.T) {
	g, err := BuildFromTypes(sample(), []string{"t_struct(S)_storage", "t_uint256"})
	if err != nil {
		t.Fatalf("BuildFromTypes failed: %v", err)
	}

	if g.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}

	if got := g.Roots(); !reflect.DeepEqual(got, []string{"t_uint256", "t_struct(S)_storage"}) {
		t.Errorf("unexpected roots: %v", got)
	}

	meta := g.GetEdgeMeta("t_uint8", "t_array(t_uint8)dyn_storage")
	if meta == nil || meta.Kind != EdgeBase {
		t.Errorf("expected base edge, got %+v", meta)
	}

	meta = g.GetEdgeMeta("t_array(t_uint8)dyn_storage", "t_struct(S)_storage")
	if meta == nil || meta.Kind != EdgeMember || !reflect.DeepEqual(meta.Members, []string{"list"}) {
		t.Errorf("expected member edge for 'list', got %+v", meta)
	}

	if g.GetNode("t_struct(S)_storage").Encoding != "inplace" {
		t.Error("expected node to carry the descriptor encoding")
	}
}

func TestBuildFromTypesEmpty(t *testing.T) {
	g, err := BuildFromTypes(nil, nil)
	if err != nil {
		t.Fatalf("BuildFromTypes failed: %v", err)
	}
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestBuildFromTypesErrors(t *testing.T) {
	tests := []struct {
		name    string
		types   []compare.MergedType
		roots   []string
		wantErr string
	}{
		{
			name:    "missing identifier",
			types:   []compare.MergedType{{}},
			wantErr: "no identifier",
		},
		{
			name:    "duplicate type",
			types:   []compare.MergedType{mergedScalar("t_uint256"), mergedScalar("t_uint256")},
			wantErr: "duplicate type",
		},
		{
			name:    "unknown root",
			types:   []compare.MergedType{mergedScalar("t_uint256")},
			roots:   []string{"t_bool"},
			wantErr: "root type",
		},
		{
			name:    "unknown base",
			types:   []compare.MergedType{mergedArray("t_array(t_bool)dyn_storage", "t_bool")},
			wantErr: "base",
		},
		{
			name: "unknown member type",
			types: []compare.MergedType{
				mergedStruct("t_struct(S)_storage", map[string]string{"x": "t_bool"}, "x"),
			},
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFromTypes(tt.types, tt.roots)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildFromTypesCycle(t *testing.T) {
	types := []compare.MergedType{
		mergedStruct("t_struct(A)_storage", map[string]string{"b": "t_struct(B)_storage"}, "b"),
		mergedStruct("t_struct(B)_storage", map[string]string{"a": "t_struct(A)_storage"}, "a"),
	}

	_, err := BuildFromTypes(types, nil)
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Error("expected errors.Is(err, ErrCycleDetected)")
	}
}

func TestBuildFromTypesRecursiveStruct(t *testing.T) {
	// struct Node { uint256 v; Node[] kids; } as the extractor emits it.
	types := []compare.MergedType{
		mergedScalar("t_uint256"),
		mergedArray("t_array(t_struct(Node)_storage)dyn_storage", "t_struct(Node)_storage"),
		mergedStruct("t_struct(Node)_storage",
			map[string]string{"v": "t_uint256", "kids": "t_array(t_struct(Node)_storage)dyn_storage"},
			"v", "kids"),
	}

	g, err := BuildFromTypes(types, []string{"t_struct(Node)_storage"})
	if err != nil {
		t.Fatalf("BuildFromTypes failed: %v", err)
	}

	want := []Edge{{From: "t_struct(Node)_storage", To: "t_array(t_struct(Node)_storage)dyn_storage"}}
	if !reflect.DeepEqual(g.Recursive, want) {
		t.Errorf("unexpected recursive references: %v", g.Recursive)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}

	order, err := g.MigrationOrder()
	if err != nil {
		t.Fatalf("MigrationOrder failed: %v", err)
	}
	expected := []string{"t_uint256", "t_array(t_struct(Node)_storage)dyn_storage", "t_struct(Node)_storage"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestReaches(t *testing.T) {
	g, err := BuildFromTypes(sample(), nil)
	if err != nil {
		t.Fatalf("BuildFromTypes failed: %v", err)
	}
	if !g.Reaches("t_uint8", "t_struct(S)_storage") {
		t.Error("expected t_struct(S)_storage to depend on t_uint8")
	}
	if g.Reaches("t_struct(S)_storage", "t_uint8") {
		t.Error("dependency direction reversed")
	}
	if len(g.Recursive) != 0 {
		t.Errorf("unexpected recursive references: %v", g.Recursive)
	}
}
