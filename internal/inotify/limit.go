package inotify

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const maximumWatchersFile = "/proc/sys/fs/inotify/max_user_watches"

// GetMaxWatchers reads the per-user inotify watch limit from procfs.
func GetMaxWatchers() (int, error) {
	b, err := os.ReadFile(maximumWatchersFile)
	if err != nil {
		return 0, fmt.Errorf("reading from %s: %v", maximumWatchersFile, err)
	}

	s := strings.TrimSpace(string(b))
	m, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("converting to integer: %v", err)
	}

	return m, nil
}
