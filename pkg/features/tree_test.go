package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id int64) *int64 { return &id }

func testNodes() []FeatureNode {
	return []FeatureNode{
		{ID: 1, Code: "hr", Level: LevelModule, Name: "Human Resources"},
		{ID: 2, Code: "crm", Level: LevelModule, Name: "CRM"},
		{ID: 3, Code: "dashboard", Level: LevelModule, Name: "Dashboard", IsCore: true},
		{ID: 10, Code: "employees", ParentID: ptr(1), Level: LevelSubModule, Name: "Employees"},
		{ID: 20, Code: "profile", ParentID: ptr(10), Level: LevelComponent, Name: "Profile"},
		{ID: 30, Code: "edit", ParentID: ptr(20), Level: LevelAction, Name: "Edit"},
		{ID: 31, Code: "view", ParentID: ptr(20), Level: LevelAction, Name: "View"},
	}
}

func TestNewTree(t *testing.T) {
	tree, err := NewTree(testNodes())
	require.NoError(t, err)
	assert.Equal(t, 7, tree.Len())

	module, ok := tree.Module("hr")
	require.True(t, ok)
	assert.Equal(t, int64(1), module.ID)

	sub, ok := tree.Child(module, "employees")
	require.True(t, ok)
	assert.Equal(t, LevelSubModule, sub.Level)

	_, ok = tree.Child(module, "nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"dashboard"}, tree.CoreModules())
}

func TestNewTree_DuplicateSiblingCode(t *testing.T) {
	nodes := testNodes()
	nodes = append(nodes, FeatureNode{ID: 99, Code: "employees", ParentID: ptr(1), Level: LevelSubModule})

	_, err := NewTree(nodes)
	assert.ErrorContains(t, err, "duplicate code")
}

func TestNewTree_SameCodeDifferentParentAllowed(t *testing.T) {
	nodes := testNodes()
	// "employees" also exists under crm; sibling uniqueness is per parent.
	nodes = append(nodes, FeatureNode{ID: 99, Code: "employees", ParentID: ptr(2), Level: LevelSubModule})

	_, err := NewTree(nodes)
	assert.NoError(t, err)
}

func TestNewTree_LevelSkipRejected(t *testing.T) {
	nodes := []FeatureNode{
		{ID: 1, Code: "hr", Level: LevelModule},
		{ID: 2, Code: "edit", ParentID: ptr(1), Level: LevelAction},
	}

	_, err := NewTree(nodes)
	assert.ErrorContains(t, err, "cannot be a child")
}

func TestNewTree_OrphanRejected(t *testing.T) {
	nodes := []FeatureNode{
		{ID: 1, Code: "employees", ParentID: ptr(999), Level: LevelSubModule},
	}

	_, err := NewTree(nodes)
	assert.ErrorContains(t, err, "missing parent")
}

func TestNewTree_RootMustBeModule(t *testing.T) {
	nodes := []FeatureNode{
		{ID: 1, Code: "employees", Level: LevelSubModule},
	}

	_, err := NewTree(nodes)
	assert.ErrorContains(t, err, "has no parent")
}

func TestResolvePath_FullDepth(t *testing.T) {
	tree, err := NewTree(testNodes())
	require.NoError(t, err)

	path, missing, ok := tree.ResolvePath("hr", "employees", "profile", "edit")
	require.True(t, ok)
	assert.Empty(t, missing)
	require.Len(t, path, 4)
	assert.Equal(t, LevelAction, path[3].Level)
	assert.Equal(t, "edit", path[3].Code)
}

func TestResolvePath_ModuleOnly(t *testing.T) {
	tree, err := NewTree(testNodes())
	require.NoError(t, err)

	path, _, ok := tree.ResolvePath("crm", "", "", "")
	require.True(t, ok)
	require.Len(t, path, 1)
	assert.Equal(t, "crm", path[0].Code)
}

func TestResolvePath_MissingModule(t *testing.T) {
	tree, err := NewTree(testNodes())
	require.NoError(t, err)

	path, missing, ok := tree.ResolvePath("payroll", "", "", "")
	assert.False(t, ok)
	assert.Equal(t, LevelModule, missing)
	assert.Empty(t, path)
}

func TestResolvePath_MissingAction(t *testing.T) {
	tree, err := NewTree(testNodes())
	require.NoError(t, err)

	path, missing, ok := tree.ResolvePath("hr", "employees", "profile", "delete")
	assert.False(t, ok)
	assert.Equal(t, LevelAction, missing)
	// Path contains everything that did resolve.
	require.Len(t, path, 3)
	assert.Equal(t, "profile", path[2].Code)
}

func TestLevelBelow(t *testing.T) {
	assert.Equal(t, LevelSubModule, LevelModule.Below())
	assert.Equal(t, Level(""), LevelAction.Below())
}
