package inotify

// watch is one active kernel watch: the descriptor the kernel assigned, the
// path it monitors and the mask of subscribed event classes.
type watch struct {
	wd   int
	path string
	mask uint32
}

// registry tracks active watches. The kernel hands out one descriptor per
// path, so at most one entry exists per path; re-adding a path replaces the
// stored mask in place.
type registry struct {
	byWd   map[int]*watch
	byPath map[string]int
}

func newRegistry() registry {
	return registry{
		byWd:   make(map[int]*watch),
		byPath: make(map[string]int),
	}
}

func (r *registry) add(wd int, path string, mask uint32) {
	if w, ok := r.byWd[wd]; ok {
		w.mask = mask
		return
	}
	r.byWd[wd] = &watch{wd: wd, path: path, mask: mask}
	r.byPath[path] = wd
}

func (r *registry) remove(wd int) (string, bool) {
	w, ok := r.byWd[wd]
	if !ok {
		return "", false
	}
	delete(r.byWd, wd)
	delete(r.byPath, w.path)
	return w.path, true
}

func (r *registry) exists(wd int) bool {
	_, ok := r.byWd[wd]
	return ok
}

func (r *registry) lookupPath(path string) (int, bool) {
	wd, ok := r.byPath[path]
	return wd, ok
}

func (r *registry) len() int {
	return len(r.byWd)
}
