package project

// Tree is an ordered, uniquely keyed collection of entries.
// It is not safe for concurrent use; callers serialize access.
type Tree struct {
	entries []Entry
	index   map[string]int
}

// NewTree creates a tree holding the given entries in order.
// A later entry with a name already seen replaces the earlier one in place.
func NewTree(entries ...Entry) *Tree {
	t := &Tree{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if i, ok := t.index[e.Name]; ok {
			t.entries[i] = e
			continue
		}
		t.index[e.Name] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// Len returns the number of entries
func (t *Tree) Len() int {
	return len(t.entries)
}

// Get looks up an entry by name
func (t *Tree) Get(name string) (Entry, bool) {
	i, ok := t.index[name]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of all entries in display order
func (t *Tree) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns all entry names in display order
func (t *Tree) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Name
	}
	return out
}

// Upsert inserts a new file entry at the end of the tree or overwrites the
// content of an existing one in place. Directory placeholders are never
// overwritten.
func (t *Tree) Upsert(name, content string) Action {
	i, ok := t.index[name]
	if !ok {
		t.index[name] = len(t.entries)
		t.entries = append(t.entries, Entry{Name: name, Kind: KindFile, Content: content})
		return ActionCreated
	}

	e := &t.entries[i]
	switch {
	case e.IsDir():
		return ActionSkipped
	case e.Content == content:
		return ActionUnchanged
	}
	e.Content = content
	return ActionUpdated
}

// Replace swaps the full content of an existing file entry.
// It returns false and changes nothing if no such file exists.
func (t *Tree) Replace(name, content string) bool {
	i, ok := t.index[name]
	if !ok || t.entries[i].IsDir() {
		return false
	}
	t.entries[i].Content = content
	return true
}

// Clone returns an independent copy of the tree
func (t *Tree) Clone() *Tree {
	return NewTree(t.entries...)
}

// Equal reports whether two trees hold the same entries in the same order
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i, e := range t.entries {
		if other.entries[i] != e {
			return false
		}
	}
	return true
}
