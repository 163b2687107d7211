package watch

import "strings"

// NoteFlags is a bitmask of notification classes delivered by a
// NotificationSource for a registered path.
type NoteFlags uint8

const (
	// NoteWrite fires when a path's content changes. For a directory this
	// means its listing changed (an entry was added, removed or renamed).
	NoteWrite NoteFlags = 1 << iota
	// NoteExtend fires when a file grows.
	NoteExtend
	// NoteDelete fires when the path itself is removed.
	NoteDelete
	// NoteRename fires when the path is renamed. The source cannot say
	// whether the path is the old or the new name.
	NoteRename
	// NoteAttrib fires on permission or timestamp changes.
	NoteAttrib

	// NoteAll subscribes to every notification class.
	NoteAll = NoteWrite | NoteExtend | NoteDelete | NoteRename | NoteAttrib
)

var noteFlagNames = map[NoteFlags]string{
	NoteWrite:  "write",
	NoteExtend: "extend",
	NoteDelete: "delete",
	NoteRename: "rename",
	NoteAttrib: "attrib",
}

func (f NoteFlags) Has(flag NoteFlags) bool {
	return f&flag != 0
}

func (f NoteFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, flag := range []NoteFlags{NoteWrite, NoteExtend, NoteDelete, NoteRename, NoteAttrib} {
		if f.Has(flag) {
			parts = append(parts, noteFlagNames[flag])
		}
	}
	return strings.Join(parts, "|")
}

// Notification is one raw change report from a NotificationSource.
type Notification struct {
	Path  string
	Flags NoteFlags
}

// NotificationSource is the low-level per-path change notification
// primitive. Registrations are exclusively owned by the component that
// created them; two consumers registering the same path on independent
// sources is undefined behavior and nothing here coordinates it.
type NotificationSource interface {
	// Register subscribes the path to the given notification classes.
	Register(path string, classes NoteFlags) error
	// Unregister drops the path's subscription. Unknown paths are a no-op.
	Unregister(path string)
	// PauseDelivery drops notifications instead of delivering them.
	// Registrations stay open. Dropped notifications are not replayed.
	PauseDelivery()
	// ResumeDelivery re-enables delivery after PauseDelivery.
	ResumeDelivery()
	// Notifications returns the ordered stream of raw notifications.
	// The channel closes when the source is closed.
	Notifications() <-chan Notification
	// Close releases the source. The notification stream terminates.
	Close() error
}
