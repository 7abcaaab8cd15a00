package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/inwatch/inwatch/internal/config"
	"github.com/inwatch/inwatch/internal/inotify"
	"github.com/inwatch/inwatch/internal/walker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mocks

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	debugs []string
	events []string
}

func (l *mockLogger) Infof(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, v...))
}

func (l *mockLogger) Errorf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, v...))
}

func (l *mockLogger) Debugf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, fmt.Sprintf(format, v...))
}

func (l *mockLogger) Eventf(color int, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, v...))
}

type mockNotifier struct {
	mu       sync.Mutex
	nextWd   int
	watched  map[string]uint32
	handlers map[int]inotify.Handler
	polls    int
	drains   int
	closed   bool
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		nextWd:   1,
		watched:  make(map[string]uint32),
		handlers: make(map[int]inotify.Handler),
	}
}

func (n *mockNotifier) AddWatch(path string, mask uint32) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.watched[path] = mask
	wd := n.nextWd
	n.nextWd++
	return wd, nil
}

func (n *mockNotifier) Attach(wd int, mask uint32, fn inotify.Handler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[wd] = fn
	return nil
}

func (n *mockNotifier) Poll(timeout time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.polls++
	time.Sleep(time.Millisecond)
	return nil
}

func (n *mockNotifier) Drain(timeout time.Duration) ([]inotify.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drains++
	time.Sleep(time.Millisecond)
	return nil, nil
}

func (n *mockNotifier) NumWatches() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watched)
}

func (n *mockNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *mockNotifier) pollCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.polls
}

// tests

func newTestMonitor(cfg *config.Config, fs *mockNotifier) (*Monitor, *mockLogger) {
	logger := &mockLogger{}
	return &Monitor{
		cfg: cfg,
		b: &Bindings{
			Logger: logger,
			FS:     fs,
			W:      walker.NewWalker(),
		},
		MaxWatchers: 999,
	}, logger
}

func buildTree(t *testing.T) string {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0755); err != nil {
		t.Fatalf("Unexpected error building tree: %v", err)
	}
	return root
}

func TestSetupExpandsRecursiveSpecs(t *testing.T) {
	root := buildTree(t)
	cfg := &config.Config{
		Watches: []config.WatchSpec{
			{Path: root, Recursive: true, Events: []string{"create", "delete"}},
		},
	}
	fs := newMockNotifier()
	m, _ := newTestMonitor(cfg, fs)

	if err := m.Setup(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var dirs []string
	for d := range fs.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	expected := []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}
	sort.Strings(expected)
	if len(dirs) != len(expected) {
		t.Fatalf("Wrong dirs watched: %v", dirs)
	}
	for i := range dirs {
		if dirs[i] != expected[i] {
			t.Fatalf("Wrong dirs watched: %v", dirs)
		}
	}
	if len(fs.handlers) != 3 {
		t.Fatalf("Expected a handler per watch, got %d", len(fs.handlers))
	}
}

func TestSetupNonRecursiveWatchesSingleDir(t *testing.T) {
	root := buildTree(t)
	cfg := &config.Config{
		Watches: []config.WatchSpec{{Path: root}},
	}
	fs := newMockNotifier()
	m, _ := newTestMonitor(cfg, fs)

	if err := m.Setup(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fs.NumWatches() != 1 {
		t.Fatalf("Expected a single watch, got %d", fs.NumWatches())
	}
}

func TestSetupHonorsWatchLimit(t *testing.T) {
	root := buildTree(t)
	cfg := &config.Config{
		Watches: []config.WatchSpec{{Path: root, Recursive: true}},
	}
	fs := newMockNotifier()
	m, logger := newTestMonitor(cfg, fs)
	m.MaxWatchers = 2

	if err := m.Setup(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fs.NumWatches() != 2 {
		t.Fatalf("Watch limit not honored: %d watches", fs.NumWatches())
	}
	if len(logger.errors) == 0 {
		t.Fatalf("Expected a warning about the watch limit")
	}
}

func TestSetupFailsWithNoWatches(t *testing.T) {
	cfg := &config.Config{}
	fs := newMockNotifier()
	m, _ := newTestMonitor(cfg, fs)

	if err := m.Setup(); err == nil {
		t.Fatalf("Expected error when no watches could be established")
	}
}

func TestRunPollsUntilStopped(t *testing.T) {
	cfg := &config.Config{}
	fs := newMockNotifier()
	m, _ := newTestMonitor(cfg, fs)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(stop)
	}()

	deadline := time.After(time.Second)
	for fs.pollCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Timeout waiting for polls")
		case <-time.After(time.Millisecond):
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestRunDrainsStartupEvents(t *testing.T) {
	cfg := &config.Config{DrainFor: config.Duration(20 * time.Millisecond)}
	fs := newMockNotifier()
	m, logger := newTestMonitor(cfg, fs)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(stop)
	}()

	deadline := time.After(time.Second)
	for fs.pollCount() < 1 {
		select {
		case <-deadline:
			t.Fatalf("Timeout waiting for the poll loop")
		case <-time.After(time.Millisecond):
		}
	}

	close(stop)
	<-done

	fs.mu.Lock()
	drains := fs.drains
	fs.mu.Unlock()
	if drains == 0 {
		t.Fatalf("Expected startup drain to hit the queue")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.infos) < 2 {
		t.Fatalf("Expected drain log lines, got %v", logger.infos)
	}
}

func TestLogEvent(t *testing.T) {
	cfg := &config.Config{}
	fs := newMockNotifier()
	m, logger := newTestMonitor(cfg, fs)

	if err := m.logEvent(inotify.Event{Wd: 1, Mask: 0x100, Name: "foo"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(logger.events) != 1 {
		t.Fatalf("Expected one event line, got %v", logger.events)
	}
}
