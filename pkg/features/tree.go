package features

import (
	"fmt"
)

// Tree is an immutable snapshot of the feature hierarchy with O(1) child
// lookup. Build a Tree once per catalog version; never mutate it after
// construction.
type Tree struct {
	byID       map[int64]*FeatureNode
	modules    map[string]*FeatureNode // module code -> node
	children   map[childKey]*FeatureNode
	coreCodes  []string
	nodeCount  int
}

type childKey struct {
	parentID int64
	code     string
}

// NewTree builds a tree from a flat node list. It validates the sibling
// code uniqueness and parent-level invariants and rejects nodes whose
// parent is missing.
func NewTree(nodes []FeatureNode) (*Tree, error) {
	t := &Tree{
		byID:     make(map[int64]*FeatureNode, len(nodes)),
		modules:  make(map[string]*FeatureNode),
		children: make(map[childKey]*FeatureNode),
	}

	for i := range nodes {
		node := &nodes[i]
		if _, exists := t.byID[node.ID]; exists {
			return nil, fmt.Errorf("duplicate feature node id %d", node.ID)
		}
		t.byID[node.ID] = node
	}

	for _, node := range t.byID {
		if node.ParentID == nil {
			if node.Level != LevelModule {
				return nil, fmt.Errorf("node %q at level %s has no parent", node.Code, node.Level)
			}
			if _, exists := t.modules[node.Code]; exists {
				return nil, fmt.Errorf("duplicate module code %q", node.Code)
			}
			t.modules[node.Code] = node
			if node.IsCore {
				t.coreCodes = append(t.coreCodes, node.Code)
			}
			continue
		}

		parent, ok := t.byID[*node.ParentID]
		if !ok {
			return nil, fmt.Errorf("node %q references missing parent %d", node.Code, *node.ParentID)
		}
		if parent.Level.Below() != node.Level {
			return nil, fmt.Errorf("node %q at level %s cannot be a child of level %s", node.Code, node.Level, parent.Level)
		}

		key := childKey{parentID: parent.ID, code: node.Code}
		if _, exists := t.children[key]; exists {
			return nil, fmt.Errorf("duplicate code %q under parent %d", node.Code, parent.ID)
		}
		t.children[key] = node
	}

	t.nodeCount = len(t.byID)
	return t, nil
}

// Module returns the module-level node with the given code.
func (t *Tree) Module(code string) (*FeatureNode, bool) {
	node, ok := t.modules[code]
	return node, ok
}

// Child returns the child of parent with the given code.
func (t *Tree) Child(parent *FeatureNode, code string) (*FeatureNode, bool) {
	node, ok := t.children[childKey{parentID: parent.ID, code: code}]
	return node, ok
}

// Node returns a node by ID.
func (t *Tree) Node(id int64) (*FeatureNode, bool) {
	node, ok := t.byID[id]
	return node, ok
}

// CoreModules returns the codes of modules flagged as core.
func (t *Tree) CoreModules() []string {
	out := make([]string, len(t.coreCodes))
	copy(out, t.coreCodes)
	return out
}

// Len returns the number of nodes in the snapshot.
func (t *Tree) Len() int {
	return t.nodeCount
}

// ResolvePath walks the tree from the module code down through the
// optional sub-level codes, returning the visited nodes in order. When a
// code fails to resolve it returns the level that was missing.
//
// Empty codes terminate the walk: a caller asking only for a module passes
// empty submodule/component/action codes.
func (t *Tree) ResolvePath(moduleCode, subModuleCode, componentCode, actionCode string) ([]*FeatureNode, Level, bool) {
	module, ok := t.Module(moduleCode)
	if !ok {
		return nil, LevelModule, false
	}

	path := []*FeatureNode{module}
	current := module

	for _, step := range []struct {
		code  string
		level Level
	}{
		{subModuleCode, LevelSubModule},
		{componentCode, LevelComponent},
		{actionCode, LevelAction},
	} {
		if step.code == "" {
			break
		}
		child, ok := t.Child(current, step.code)
		if !ok {
			return path, step.level, false
		}
		path = append(path, child)
		current = child
	}

	return path, "", true
}
