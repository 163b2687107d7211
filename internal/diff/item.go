package diff

import "time"

// ItemState is one enumerated entry of a tree, keyed by its relative
// path. States are rebuilt from scratch on every enumeration; there is
// no identity carried across calls.
type ItemState struct {
	// RelPath is the entry's path relative to the enumeration root,
	// '/' separated.
	RelPath string
	IsDir   bool
	ModTime time.Time
	Size    int64
}

// depth counts the path separators of the entry's relative path.
func (s ItemState) depth() int {
	return pathDepth(s.RelPath)
}
