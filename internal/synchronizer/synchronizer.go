// Package synchronizer merges parsed extractions into a project tree.
package synchronizer

import (
	"iter"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/cosmos-link/webgen/internal/parser"
	"github.com/cosmos-link/webgen/internal/project"
)

// Change describes what happened to one name during a synchronization
type Change struct {
	Name   string         `json:"name"`
	Action project.Action `json:"action"`
	Diff   string         `json:"diff,omitempty"`
}

// Result is the outcome of applying one model response to a tree
type Result struct {
	Changes []Change `json:"changes"`
}

// Names returns the names that were created or updated, in first-seen order.
// A name whose final content equals what it held before is reported as
// unchanged and is not included.
func (r Result) Names() []string {
	names := []string{}
	for _, c := range r.Changes {
		if c.Action == project.ActionCreated || c.Action == project.ActionUpdated {
			names = append(names, c.Name)
		}
	}
	return names
}

// Count returns how many changes carry the given action
func (r Result) Count(action project.Action) int {
	n := 0
	for _, c := range r.Changes {
		if c.Action == action {
			n++
		}
	}
	return n
}

// Apply writes every extraction into the tree in order. Existing files are
// overwritten in place, unknown names are appended and directory placeholders
// are left alone. A name seen twice keeps its last content.
func Apply(tree *project.Tree, extractions iter.Seq[parser.Extraction]) Result {
	var (
		res    Result
		seen   = make(map[string]int)
		before = make(map[string]*string)
	)

	for ex := range extractions {
		if _, ok := before[ex.Name]; !ok {
			if e, exists := tree.Get(ex.Name); exists {
				content := e.Content
				before[ex.Name] = &content
			} else {
				before[ex.Name] = nil
			}
		}

		action := tree.Upsert(ex.Name, ex.Content)

		i, ok := seen[ex.Name]
		if !ok {
			seen[ex.Name] = len(res.Changes)
			res.Changes = append(res.Changes, Change{Name: ex.Name, Action: action})
			continue
		}
		res.Changes[i].Action = merge(res.Changes[i].Action, action)
	}

	for i := range res.Changes {
		c := &res.Changes[i]
		if c.Action == project.ActionSkipped {
			continue
		}
		cur, _ := tree.Get(c.Name)
		old := before[c.Name]
		if old != nil && *old == cur.Content {
			c.Action = project.ActionUnchanged
			continue
		}
		c.Diff = unifiedDiff(c.Name, old, cur.Content)
	}

	return res
}

// ApplyText parses a raw model response and applies it to the tree
func ApplyText(tree *project.Tree, response string) Result {
	return Apply(tree, parser.Parse(response))
}

// merge folds a later action for the same name into the earlier one
func merge(prev, next project.Action) project.Action {
	switch {
	case prev == project.ActionCreated:
		return project.ActionCreated
	case prev == project.ActionSkipped || next == project.ActionSkipped:
		return project.ActionSkipped
	case next == project.ActionUpdated:
		return project.ActionUpdated
	}
	return prev
}

func unifiedDiff(name string, old *string, cur string) string {
	from := "a/" + name
	var a []string
	if old == nil {
		from = "/dev/null"
	} else {
		a = difflib.SplitLines(*old)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        difflib.SplitLines(cur),
		FromFile: from,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
