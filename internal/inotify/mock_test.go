package inotify

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mockSyscalls scripts the kernel side: queued byte payloads are handed out
// one per read cycle, watch descriptors are assigned sequentially and reused
// per path like the kernel does.
type mockSyscalls struct {
	initErr error
	addErr  error
	rmErr   error
	waitErr error
	readErr error

	nextWd  int
	watches map[string]int
	removed []int
	reads   [][]byte
	waits   []int
	closed  bool
}

func newMockSyscalls() *mockSyscalls {
	return &mockSyscalls{
		nextWd:  1,
		watches: make(map[string]int),
	}
}

func (m *mockSyscalls) push(b []byte) {
	m.reads = append(m.reads, b)
}

func (m *mockSyscalls) Init() (int, error) {
	if m.initErr != nil {
		return -1, m.initErr
	}
	return 42, nil
}

func (m *mockSyscalls) AddWatch(fd int, path string, mask uint32) (int, error) {
	if m.addErr != nil {
		return -1, m.addErr
	}
	if wd, ok := m.watches[path]; ok {
		return wd, nil
	}
	wd := m.nextWd
	m.nextWd++
	m.watches[path] = wd
	return wd, nil
}

func (m *mockSyscalls) RmWatch(fd int, wd int) error {
	if m.rmErr != nil {
		return m.rmErr
	}
	m.removed = append(m.removed, wd)
	return nil
}

func (m *mockSyscalls) Pending(fd int) (int, error) {
	if len(m.reads) == 0 {
		return 0, nil
	}
	return len(m.reads[0]), nil
}

func (m *mockSyscalls) Wait(fd int, timeout int) (bool, error) {
	m.waits = append(m.waits, timeout)
	if m.waitErr != nil {
		return false, m.waitErr
	}
	return len(m.reads) > 0, nil
}

func (m *mockSyscalls) Read(fd int, buf []byte) (int, error) {
	if m.readErr != nil {
		return -1, m.readErr
	}
	if len(m.reads) == 0 {
		return 0, errors.New("read with nothing queued")
	}
	n := copy(buf, m.reads[0])
	m.reads = m.reads[1:]
	return n, nil
}

func (m *mockSyscalls) Close(fd int) error {
	m.closed = true
	return nil
}

// record encodes one inotify_event the way the kernel lays it out in memory.
// Non-empty names get a terminating NUL, as the kernel pads them.
func record(wd int, mask, cookie uint32, name string) []byte {
	var nameLen uint32
	if name != "" {
		nameLen = uint32(len(name) + 1)
	}
	ev := unix.InotifyEvent{Wd: int32(wd), Mask: mask, Cookie: cookie, Len: nameLen}

	buf := make([]byte, unix.SizeofInotifyEvent+int(nameLen))
	copy(buf, (*[unix.SizeofInotifyEvent]byte)(unsafe.Pointer(&ev))[:])
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func records(rs ...[]byte) []byte {
	var buf []byte
	for _, r := range rs {
		buf = append(buf, r...)
	}
	return buf
}
