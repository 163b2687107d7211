package watch

import (
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
)

// ChangeKind classifies what happened to an item.
type ChangeKind uint8

const (
	KindCreated ChangeKind = iota
	KindModified
	KindDeleted
	KindRenamed
	KindAttrsChanged
)

var changeKindNames = []string{
	"created",
	"modified",
	"deleted",
	"renamed",
	"attrsChanged",
}

func (k ChangeKind) String() string {
	if int(k) >= len(changeKindNames) {
		return "unknown"
	}
	return changeKindNames[k]
}

// ItemType is the filesystem type of an item at translation time.
type ItemType uint8

const (
	ItemUnknown ItemType = iota
	ItemFile
	ItemDir
	ItemSymlink
)

var itemTypeNames = []string{
	"unknown",
	"file",
	"directory",
	"symlink",
}

func (t ItemType) String() string {
	if int(t) >= len(itemTypeNames) {
		return "unknown"
	}
	return itemTypeNames[t]
}

// ChangeEvent is one enriched, path-relative change report from a watch
// engine. Events are values; they are produced per notification and not
// retained by the engine.
type ChangeEvent struct {
	// Path is the absolute path of the changed item.
	Path string
	// RelPath is Path relative to Root, '/' separated, "" for the root.
	RelPath string
	// Root is the engine's watch root.
	Root string
	// Kinds is the set of change kinds observed in this notification.
	Kinds mapset.Set[ChangeKind]
	// Item is the item's type at translation time, ItemUnknown if the
	// item could not be statted (typically because it is already gone).
	Item ItemType
	// Raw is the notification the event was derived from. Synthesized
	// events carry the triggering directory's notification.
	Raw Notification
}

// Is reports whether the event carries the given change kind.
func (e ChangeEvent) Is(kind ChangeKind) bool {
	return e.Kinds.Contains(kind)
}

// classifyPath stats a path and maps it to an ItemType. A failed stat
// degrades to ItemUnknown rather than an error.
func classifyPath(path string) ItemType {
	info, err := os.Lstat(path)
	if err != nil {
		return ItemUnknown
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return ItemSymlink
	case info.IsDir():
		return ItemDir
	default:
		return ItemFile
	}
}

// relativePath expresses path relative to root with '/' separators.
// The root itself maps to "".
func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
