package models

import (
	"sort"
	"testing"
)

// memorySource serves a department tree from maps.
type memorySource struct {
	children map[uint][]uint
	missing  map[uint]bool
}

func (s memorySource) ChildDepartments(departmentID uint) ([]uint, error) {
	return s.children[departmentID], nil
}

func (s memorySource) DepartmentExists(departmentID uint) (bool, error) {
	return !s.missing[departmentID], nil
}

// testTree:
//
//	1
//	├── 2
//	│   ├── 4
//	│   └── 5
//	└── 3
//	6 (separate root)
func testTree() memorySource {
	return memorySource{
		children: map[uint][]uint{
			1: {2, 3},
			2: {4, 5},
		},
	}
}

func sorted(ids []uint) []uint {
	out := append([]uint(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestSubordinateDepartments_FullClosure(t *testing.T) {
	source := testTree()

	closure, err := SubordinateDepartments(source, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sorted(closure)
	want := []uint{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected closure %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected closure %v, got %v", want, got)
		}
	}
}

func TestSubordinateDepartments_LeafContainsOnlyItself(t *testing.T) {
	source := testTree()

	closure, err := SubordinateDepartments(source, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closure) != 1 || closure[0] != 4 {
		t.Fatalf("expected [4], got %v", closure)
	}
}

func TestSubordinateDepartments_CycleTerminates(t *testing.T) {
	// A corrupted tree where 3 points back to 1 must not loop forever.
	source := memorySource{
		children: map[uint][]uint{
			1: {2},
			2: {3},
			3: {1},
		},
	}

	closure, err := SubordinateDepartments(source, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closure) != 3 {
		t.Fatalf("expected 3 departments, got %v", closure)
	}
}

func TestInClosure(t *testing.T) {
	source := testTree()

	tests := []struct {
		root   uint
		target uint
		want   bool
	}{
		{1, 5, true},
		{1, 1, true},
		{2, 4, true},
		{2, 3, false},
		{1, 6, false},
		{4, 1, false},
	}
	for _, tt := range tests {
		got, err := InClosure(source, tt.root, tt.target)
		if err != nil {
			t.Fatalf("InClosure(%d, %d): unexpected error: %v", tt.root, tt.target, err)
		}
		if got != tt.want {
			t.Fatalf("InClosure(%d, %d) = %v, want %v", tt.root, tt.target, got, tt.want)
		}
	}
}

func TestWouldCreateCycle(t *testing.T) {
	source := testTree()

	tests := []struct {
		name         string
		departmentID uint
		newParentID  uint
		want         bool
	}{
		{"self parent", 2, 2, true},
		{"direct child", 2, 4, true},
		{"transitive descendant", 1, 5, true},
		{"sibling", 2, 3, false},
		{"separate root", 2, 6, false},
		{"upward move", 4, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WouldCreateCycle(source, tt.departmentID, tt.newParentID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("WouldCreateCycle(%d, %d) = %v, want %v", tt.departmentID, tt.newParentID, got, tt.want)
			}
		})
	}
}
