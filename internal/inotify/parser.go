package inotify

import (
	"bytes"
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrTruncated reports that the tail of a read was cut mid-record. Records
// decoded before the cut are still delivered; the partial bytes are dropped.
var ErrTruncated = errors.New("truncated inotify record")

// parseEvents decodes concatenated inotify_event records from buf, in kernel
// delivery order. Each record is a fixed header followed by Len bytes of
// NUL-padded name. A name length of zero is a normal record, not an error.
func parseEvents(buf []byte) ([]Event, error) {
	events := make([]Event, 0, len(buf)/unix.SizeofInotifyEvent)

	for off := 0; off < len(buf); {
		if len(buf)-off < unix.SizeofInotifyEvent {
			return events, ErrTruncated
		}
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		end := off + unix.SizeofInotifyEvent + int(raw.Len)
		if end > len(buf) {
			return events, ErrTruncated
		}

		var name string
		if raw.Len > 0 {
			name = string(bytes.TrimRight(buf[off+unix.SizeofInotifyEvent:end], "\x00"))
		}
		events = append(events, Event{
			Wd:     int(raw.Wd),
			Mask:   raw.Mask,
			Cookie: raw.Cookie,
			Name:   name,
		})
		off = end
	}

	return events, nil
}
