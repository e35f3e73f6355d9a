package features

import "time"

// Level identifies a node's depth in the feature hierarchy.
type Level string

const (
	LevelModule    Level = "module"
	LevelSubModule Level = "submodule"
	LevelComponent Level = "component"
	LevelAction    Level = "action"
)

// Levels lists the hierarchy levels from shallowest to deepest.
func Levels() []Level {
	return []Level{LevelModule, LevelSubModule, LevelComponent, LevelAction}
}

// Below returns the level one step deeper, or "" at the bottom.
func (l Level) Below() Level {
	switch l {
	case LevelModule:
		return LevelSubModule
	case LevelSubModule:
		return LevelComponent
	case LevelComponent:
		return LevelAction
	}
	return ""
}

// FeatureNode is one node of the feature hierarchy.
//
// ParentID is nil for module-level nodes. IsCore marks modules that are
// included for every tenant regardless of plan; it is meaningful only at
// module level.
type FeatureNode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Level     Level     `json:"level"`
	Name      string    `json:"name"`
	IsCore    bool      `json:"is_core"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
