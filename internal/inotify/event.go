package inotify

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Event is one decoded inotify notification. Cookie correlates the two
// halves of a rename (IN_MOVED_FROM / IN_MOVED_TO share a cookie). Name is
// set only for events on entries inside a watched directory.
type Event struct {
	Wd     int
	Mask   uint32
	Cookie uint32
	Name   string
}

func (e Event) String() string {
	return fmt.Sprintf("wd=%d mask=%s cookie=%d name=%q", e.Wd, MaskName(e.Mask), e.Cookie, e.Name)
}

var maskBits = []struct {
	bit  uint32
	name string
}{
	{unix.IN_ACCESS, "IN_ACCESS"},
	{unix.IN_ATTRIB, "IN_ATTRIB"},
	{unix.IN_CLOSE_WRITE, "IN_CLOSE_WRITE"},
	{unix.IN_CLOSE_NOWRITE, "IN_CLOSE_NOWRITE"},
	{unix.IN_CREATE, "IN_CREATE"},
	{unix.IN_DELETE, "IN_DELETE"},
	{unix.IN_DELETE_SELF, "IN_DELETE_SELF"},
	{unix.IN_MODIFY, "IN_MODIFY"},
	{unix.IN_MOVE_SELF, "IN_MOVE_SELF"},
	{unix.IN_MOVED_FROM, "IN_MOVED_FROM"},
	{unix.IN_MOVED_TO, "IN_MOVED_TO"},
	{unix.IN_OPEN, "IN_OPEN"},
	{unix.IN_ISDIR, "IN_ISDIR"},
	{unix.IN_IGNORED, "IN_IGNORED"},
	{unix.IN_Q_OVERFLOW, "IN_Q_OVERFLOW"},
	{unix.IN_UNMOUNT, "IN_UNMOUNT"},
}

// MaskName translates an event mask into human-readable form, e.g.
// "IN_CREATE | IN_ISDIR". Unknown bits are rendered in hex.
func MaskName(mask uint32) string {
	if mask == 0 {
		return ""
	}

	known := uint32(0)
	names := make([]string, 0, 4)
	for _, mb := range maskBits {
		if mask&mb.bit != 0 {
			names = append(names, mb.name)
			known |= mb.bit
		}
	}
	if rest := mask &^ known; rest != 0 {
		names = append(names, fmt.Sprintf("%#x", rest))
	}

	return strings.Join(names, " | ")
}
