package inotify

import "fmt"

// maxBufferSize caps buffer growth. FIONREAD never reports anywhere near
// this on a healthy fd; a larger request indicates a corrupt size query.
const maxBufferSize = 16 << 20

// buffer is the reusable read buffer. It grows to fit whatever the kernel
// reports available and never shrinks, so allocation cost amortizes across
// polls.
type buffer struct {
	data []byte
}

// fit returns a slice of exactly n bytes backed by the owned buffer, growing
// it first if undersized. On a refused growth the previous buffer is kept
// unchanged.
func (b *buffer) fit(n int) ([]byte, error) {
	if n > maxBufferSize {
		return nil, fmt.Errorf("refusing to grow read buffer to %d bytes", n)
	}
	if n > len(b.data) {
		b.data = make([]byte, n)
	}
	return b.data[:n], nil
}
