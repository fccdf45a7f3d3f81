package project

// Kind represents the kind of a project entry
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry represents a single named file or directory placeholder in a project.
// Names may contain "/" but the project stays flat: nesting is only a display hint.
type Entry struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// IsDir returns true if the entry is a directory placeholder
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Action describes what an insert-or-update did to a tree
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
)
