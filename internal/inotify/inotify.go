package inotify

import (
	"errors"
	"fmt"
	"time"
)

// Syscalls is the seam to the kernel inotify facility. The production
// implementation lives in the sys subpackage; tests script their own.
type Syscalls interface {
	Init() (int, error)
	AddWatch(fd int, path string, mask uint32) (int, error)
	RmWatch(fd int, wd int) error
	Pending(fd int) (int, error)
	Wait(fd int, timeout int) (bool, error)
	Read(fd int, buf []byte) (int, error)
	Close(fd int) error
}

// Inotify associates filesystem events with user-registered handlers.
// Events read from the kernel land in an internal FIFO queue and are either
// dispatched to handlers (Poll, PollWatch) or handed to the caller wholesale
// (Drain). An instance is owned by a single goroutine; nothing here locks.
type Inotify struct {
	fd       int
	sc       Syscalls
	buf      buffer
	queue    []Event
	watches  registry
	handlers handlerTable
}

// New creates an inotify instance on the given syscall seam. Failure to
// obtain the kernel handle is unrecoverable for the instance.
func New(sc Syscalls) (*Inotify, error) {
	fd, err := sc.Init()
	if err != nil {
		return nil, fmt.Errorf("initializing inotify: %v", err)
	}
	return &Inotify{
		fd:      fd,
		sc:      sc,
		watches: newRegistry(),
	}, nil
}

// AddWatch registers path with the kernel for the event classes in mask and
// records it in the registry. Re-adding a watched path replaces its stored
// mask and returns the existing descriptor; the kernel reuses descriptors
// per path so no second watch is created. On kernel rejection the registry
// is left untouched.
func (i *Inotify) AddWatch(path string, mask uint32) (int, error) {
	wd, err := i.sc.AddWatch(i.fd, path, mask)
	if err != nil {
		return -1, fmt.Errorf("adding watch on %s: %v", path, err)
	}
	i.watches.add(wd, path, mask)
	return wd, nil
}

// RemoveWatch tears down the watch for wd. Every handler binding for wd is
// removed with it. An unknown descriptor is an error with no side effects.
func (i *Inotify) RemoveWatch(wd int) error {
	if _, ok := i.watches.remove(wd); !ok {
		return fmt.Errorf("unknown watch descriptor: %d", wd)
	}
	i.handlers.detachAll(wd)
	if err := i.sc.RmWatch(i.fd, wd); err != nil {
		return fmt.Errorf("removing watch %d: %v", wd, err)
	}
	return nil
}

// RemovePath is RemoveWatch keyed by path; it returns the descriptor the
// watch had.
func (i *Inotify) RemovePath(path string) (int, error) {
	wd, ok := i.watches.lookupPath(path)
	if !ok {
		return -1, fmt.Errorf("path not watched: %s", path)
	}
	if err := i.RemoveWatch(wd); err != nil {
		return -1, err
	}
	return wd, nil
}

// Exists reports whether wd identifies an active watch.
func (i *Inotify) Exists(wd int) bool {
	return i.watches.exists(wd)
}

// NumWatches returns the number of active watches.
func (i *Inotify) NumWatches() int {
	return i.watches.len()
}

// Attach binds a handler to fire for events on wd whose mask overlaps mask.
// Attaching to the same (wd, mask) pair replaces the previous handler.
// Bindings with distinct masks coexist and fire in the order attached.
func (i *Inotify) Attach(wd int, mask uint32, fn Handler) error {
	if !i.watches.exists(wd) {
		return fmt.Errorf("unknown watch descriptor: %d", wd)
	}
	if fn == nil {
		return fmt.Errorf("nil handler for watch descriptor %d", wd)
	}
	i.handlers.attach(wd, mask, fn)
	return nil
}

// Detach removes the handler bound with exactly (wd, mask).
func (i *Inotify) Detach(wd int, mask uint32) error {
	if !i.handlers.detach(wd, mask) {
		return fmt.Errorf("no handler for watch descriptor %d with mask %#x", wd, mask)
	}
	return nil
}

// DetachAll removes every handler bound to wd.
func (i *Inotify) DetachAll(wd int) error {
	if !i.handlers.detachAll(wd) {
		return fmt.Errorf("no handlers for watch descriptor %d", wd)
	}
	return nil
}

// Poll reads whatever the kernel has queued and dispatches every event to
// its matching handlers, in delivery order. Events without a matching
// binding are dropped after the one dispatch attempt. A negative timeout
// waits indefinitely for data, zero returns immediately, positive waits up
// to that long. Finding nothing to read is success.
func (i *Inotify) Poll(timeout time.Duration) error {
	perr := i.fill(timeout)
	if perr != nil && !errors.Is(perr, ErrTruncated) {
		return perr
	}
	for _, e := range i.queue {
		i.handlers.dispatch(e)
	}
	i.queue = i.queue[:0]
	return perr
}

// PollWatch is Poll restricted to one descriptor: only events for wd are
// dispatched and consumed. Events for other descriptors stay queued for a
// later Poll, PollWatch or Drain.
func (i *Inotify) PollWatch(wd int, timeout time.Duration) error {
	perr := i.fill(timeout)
	if perr != nil && !errors.Is(perr, ErrTruncated) {
		return perr
	}
	kept := i.queue[:0]
	for _, e := range i.queue {
		if e.Wd == wd {
			i.handlers.dispatch(e)
			continue
		}
		kept = append(kept, e)
	}
	i.queue = kept
	return perr
}

// Drain is the manual consumption path: it runs the same read pipeline but
// dispatches nothing, moving the whole internal queue to the caller. An
// immediate second Drain with no new kernel data returns an empty slice.
func (i *Inotify) Drain(timeout time.Duration) ([]Event, error) {
	perr := i.fill(timeout)
	if perr != nil && !errors.Is(perr, ErrTruncated) {
		return nil, perr
	}
	q := i.queue
	i.queue = nil
	return q, perr
}

// Pending returns the number of queued events not yet dispatched or drained.
func (i *Inotify) Pending() int {
	return len(i.queue)
}

// Close releases the kernel handle. The instance must not be used after.
func (i *Inotify) Close() error {
	if err := i.sc.Close(i.fd); err != nil {
		return fmt.Errorf("closing inotify fd: %v", err)
	}
	return nil
}

// fill runs one read cycle: wait for readiness, query the exact byte count,
// grow the buffer if undersized, read and parse, append to the queue. Any
// failure before parsing leaves queue and buffer in their previous state. A
// truncated tail is soft: records before the cut are queued and ErrTruncated
// comes back to the caller.
func (i *Inotify) fill(timeout time.Duration) error {
	ready, err := i.sc.Wait(i.fd, durationToMillis(timeout))
	if err != nil {
		return fmt.Errorf("waiting on inotify fd %d: %v", i.fd, err)
	}
	if !ready {
		return nil
	}

	pending, err := i.sc.Pending(i.fd)
	if err != nil {
		return fmt.Errorf("querying pending bytes on fd %d: %v", i.fd, err)
	}
	if pending == 0 {
		return nil
	}

	buf, err := i.buf.fit(pending)
	if err != nil {
		return err
	}

	n, err := i.sc.Read(i.fd, buf)
	if err != nil {
		return fmt.Errorf("reading from inotify fd %d: %v", i.fd, err)
	}

	events, perr := parseEvents(buf[:n])
	i.queue = append(i.queue, events...)
	return perr
}

// durationToMillis maps the poll timeout convention onto poll(2): negative
// blocks indefinitely, zero returns immediately.
func durationToMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int(d / time.Millisecond)
}
