package trigger

import (
	"bytes"
	"sync"
)

const truncatedMarker = "\n[output truncated]"

// captureBuffer collects hook output up to a byte limit. Once released it swallows
// further writes, so a hook abandoned after a timeout cannot grow it.
type captureBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
	released  bool
}

func newCaptureBuffer(limit int) *captureBuffer {
	return &captureBuffer{limit: limit}
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return len(p), nil
	}

	if c.limit > 0 {
		room := c.limit - c.buf.Len()
		if room <= 0 {
			c.truncated = true
			return len(p), nil
		}
		if len(p) > room {
			c.buf.Write(p[:room])
			c.truncated = true
			return len(p), nil
		}
	}

	c.buf.Write(p)
	return len(p), nil
}

// release returns the captured text and detaches the buffer.
func (c *captureBuffer) release() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released = true
	out := c.buf.String()
	if c.truncated {
		out += truncatedMarker
	}
	c.buf.Reset()
	return out
}
