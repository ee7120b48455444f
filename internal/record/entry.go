package record

import "sort"

// Entry is a single file of the batch model. Its identity is its key in
// the enclosing FileTree.
type Entry struct {
	Contents []byte
	// Mode is the permission bits as a zero-padded 4 digit octal string,
	// empty when unknown.
	Mode string
	Meta map[string]any
}

// FileTree maps slash separated relative paths to entries.
type FileTree map[string]*Entry

// Keys returns the tree keys in sorted order.
func (t FileTree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the tree. Entries are shared.
func (t FileTree) Clone() FileTree {
	out := make(FileTree, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// KeySet returns the set of keys currently in the tree.
func (t FileTree) KeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(t))
	for k := range t {
		set[k] = struct{}{}
	}
	return set
}
