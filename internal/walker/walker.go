package walker

import (
	"fmt"
	"os"
	"path/filepath"
)

// Walker expands a directory root into the set of directories below it, up
// to a depth limit. The watch core never recurses on its own; callers use
// this to turn one recursive watch request into individual watches.
type Walker struct {
}

func NewWalker() *Walker {
	return &Walker{}
}

type chans struct {
	dirCh  chan string
	errCh  chan error
	doneCh chan struct{}
}

func newChans() *chans {
	return &chans{
		dirCh:  make(chan string),
		errCh:  make(chan error),
		doneCh: make(chan struct{}),
	}
}

const maxInt = int(^uint(0) >> 1)

// Walk emits root and its subdirectories on dirCh, depth levels deep. A
// negative depth means no limit. Closing doneCh stops the traversal early.
func (w *Walker) Walk(root string, depth int) (dirCh chan string, errCh chan error, doneCh chan struct{}) {
	if depth < 0 {
		depth = maxInt
	}
	c := newChans()

	go func() {
		defer close(c.dirCh)
		descent(root, depth-1, c)
	}()
	return c.dirCh, c.errCh, c.doneCh
}

func descent(dir string, depth int, c *chans) {
	if done := emitDir(dir, depth, c); done {
		return
	}

	handleSubDirs(dir, depth, c)
}

func emitDir(dir string, depth int, c *chans) bool {
	_, err := os.Stat(dir)
	if err != nil {
		// the consumer may have closed doneCh and walked away; never
		// block on an abandoned error channel
		select {
		case c.errCh <- fmt.Errorf("visiting %s: %v", dir, err):
		case <-c.doneCh:
		}
		return true
	}
	select {
	case c.dirCh <- dir:
	case <-c.doneCh:
		return true
	}
	if depth < 0 {
		return true
	}

	return false
}

func handleSubDirs(dir string, depth int, c *chans) {
	ls, err := os.ReadDir(dir)
	if err != nil {
		select {
		case c.errCh <- fmt.Errorf("opening dir %s: %v", dir, err):
		case <-c.doneCh:
			return
		}
	}

	for _, e := range ls {
		if e.IsDir() {
			newDir := filepath.Join(dir, e.Name())
			descent(newDir, depth-1, c)
		}
	}
}
