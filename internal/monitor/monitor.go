package monitor

import (
	"time"

	"github.com/pkg/errors"

	"github.com/inwatch/inwatch/internal/config"
	"github.com/inwatch/inwatch/internal/inotify"
	"github.com/inwatch/inwatch/internal/logging"
)

type Logger interface {
	Infof(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Eventf(color int, format string, v ...interface{})
}

type Notifier interface {
	AddWatch(path string, mask uint32) (int, error)
	Attach(wd int, mask uint32, fn inotify.Handler) error
	Poll(timeout time.Duration) error
	Drain(timeout time.Duration) ([]inotify.Event, error)
	NumWatches() int
	Close() error
}

type Walker interface {
	Walk(root string, depth int) (chan string, chan error, chan struct{})
}

type Bindings struct {
	Logger Logger
	FS     Notifier
	W      Walker
}

// Monitor wires config, walker and the watch facility together: it expands
// watch specs into kernel watches, attaches a logging handler per watch and
// drives the poll loop until told to stop.
type Monitor struct {
	cfg *config.Config
	b   *Bindings

	// MaxWatchers caps how many watches Setup will create. Non-positive
	// means no cap.
	MaxWatchers int
}

func New(cfg *config.Config, b *Bindings) *Monitor {
	maxWatchers, err := inotify.GetMaxWatchers()
	if err != nil {
		b.Logger.Errorf("Can't get inotify watcher limit: %v", err)
		maxWatchers = -1
	}
	return &Monitor{
		cfg:         cfg,
		b:           b,
		MaxWatchers: maxWatchers,
	}
}

// Setup turns every watch spec into kernel watches with a logging handler
// attached. Recursive specs are expanded through the walker; the core itself
// never recurses. Individual failures are logged and skipped, but ending up
// with no watches at all is an error.
func (m *Monitor) Setup() error {
	for _, spec := range m.cfg.Watches {
		mask, err := config.ParseEvents(spec.Events)
		if err != nil {
			return errors.Wrapf(err, "watch spec for %s", spec.Path)
		}
		depth := 0
		if spec.Recursive {
			depth = -1
		}
		m.addWatches(spec.Path, depth, mask)
	}

	if m.b.FS.NumWatches() == 0 {
		return errors.New("no watches could be established")
	}
	m.b.Logger.Infof("Watching %d directories", m.b.FS.NumWatches())
	return nil
}

func (m *Monitor) addWatches(root string, depth int, mask uint32) {
	dirCh, walkErrCh, doneCh := m.b.W.Walk(root, depth)
loop:
	for {
		if m.MaxWatchers > 0 && m.b.FS.NumWatches() >= m.MaxWatchers {
			m.b.Logger.Errorf("Watch limit (%d) reached, not watching everything under %s", m.MaxWatchers, root)
			close(doneCh)
			break loop
		}
		select {
		case err := <-walkErrCh:
			m.b.Logger.Errorf("adding watches: %v", err)
		case dir, ok := <-dirCh:
			if !ok {
				break loop
			}
			wd, err := m.b.FS.AddWatch(dir, mask)
			if err != nil {
				m.b.Logger.Errorf("Can't watch %s: %v", dir, err)
				continue
			}
			if err := m.b.FS.Attach(wd, mask, m.logEvent); err != nil {
				m.b.Logger.Errorf("Can't attach handler for %s: %v", dir, err)
			}
		}
	}
}

func (m *Monitor) logEvent(e inotify.Event) error {
	color := logging.ColorNone
	if m.cfg.Colored {
		color = logging.ColorGreen
	}
	m.b.Logger.Eventf(color, "FS: %s", e)
	return nil
}

// Run drives the poll loop until stop is closed. The startup burst of
// events (watch creation itself generates some) is drained away first.
func (m *Monitor) Run(stop <-chan struct{}) {
	if drainFor := m.cfg.DrainFor.Std(); drainFor > 0 {
		m.b.Logger.Infof("Draining file system events due to startup...")
		m.drainFor(drainFor)
		m.b.Logger.Infof("done")
	}

	timeout := m.cfg.Timeout.Std()
	for {
		select {
		case <-stop:
			return
		default:
		}

		err := m.b.FS.Poll(timeout)
		switch {
		case err == nil:
		case errors.Is(err, inotify.ErrTruncated):
			m.b.Logger.Debugf("dropped a truncated event record")
		default:
			m.b.Logger.Errorf("polling for events: %v", err)
		}
	}
}

func (m *Monitor) drainFor(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if _, err := m.b.FS.Drain(50 * time.Millisecond); err != nil && !errors.Is(err, inotify.ErrTruncated) {
			m.b.Logger.Errorf("draining startup events: %v", err)
			return
		}
	}
}
