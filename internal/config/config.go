package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// WatchSpec describes one watch target. Events holds lower-case event class
// names ("create", "delete", ...); an empty list subscribes to all classes.
type WatchSpec struct {
	Path      string   `yaml:"path"`
	Recursive bool     `yaml:"recursive"`
	Events    []string `yaml:"events"`
}

// Duration decodes YAML scalars like "500ms" or "1s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Watches  []WatchSpec `yaml:"watches"`
	Timeout  Duration    `yaml:"timeout"`
	DrainFor Duration    `yaml:"drain_for"`
	Colored  bool        `yaml:"colored"`
	Debug    bool        `yaml:"debug"`
}

func (c Config) String() string {
	paths := make([]string, 0, len(c.Watches))
	for _, w := range c.Watches {
		if w.Recursive {
			paths = append(paths, w.Path+" (recursive)")
		} else {
			paths = append(paths, w.Path)
		}
	}
	return fmt.Sprintf("Watching: %v ||| poll timeout: %v | startup drain: %v | debug: %t", paths, c.Timeout.Std(), c.DrainFor.Std(), c.Debug)
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating config file %s", path)
	}
	return cfg, nil
}

// Validate checks every watch spec for a usable path and known event names.
func (c *Config) Validate() error {
	for _, w := range c.Watches {
		if w.Path == "" {
			return errors.New("watch spec without a path")
		}
		if _, err := ParseEvents(w.Events); err != nil {
			return errors.Wrapf(err, "watch spec for %s", w.Path)
		}
	}
	return nil
}

var eventMasks = map[string]uint32{
	"access":        unix.IN_ACCESS,
	"attrib":        unix.IN_ATTRIB,
	"close_write":   unix.IN_CLOSE_WRITE,
	"close_nowrite": unix.IN_CLOSE_NOWRITE,
	"create":        unix.IN_CREATE,
	"delete":        unix.IN_DELETE,
	"delete_self":   unix.IN_DELETE_SELF,
	"modify":        unix.IN_MODIFY,
	"move_self":     unix.IN_MOVE_SELF,
	"moved_from":    unix.IN_MOVED_FROM,
	"moved_to":      unix.IN_MOVED_TO,
	"open":          unix.IN_OPEN,
	"all":           unix.IN_ALL_EVENTS,
}

// ParseEvents folds event class names into an inotify mask. An empty list
// means all classes.
func ParseEvents(names []string) (uint32, error) {
	if len(names) == 0 {
		return unix.IN_ALL_EVENTS, nil
	}

	var mask uint32
	for _, name := range names {
		bit, ok := eventMasks[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, errors.Errorf("unknown event class %q (known: %s)", name, knownEvents())
		}
		mask |= bit
	}
	return mask, nil
}

func knownEvents() string {
	names := make([]string, 0, len(eventMasks))
	for name := range eventMasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
