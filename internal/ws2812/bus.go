package ws2812

import (
	"sync"
	"time"
)

// MemoryBus is a bus that keeps the written streams in memory. It backs the
// dry-run configuration and the tests.
type MemoryBus struct {
	mu     sync.Mutex
	writes int
	last   []byte
	err    error
	delay  time.Duration
}

// NewMemoryBus returns an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Tx records w. r is ignored; the strip is write-only.
func (m *MemoryBus) Tx(w, r []byte) error {
	m.mu.Lock()
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.last = append(m.last[:0], w...)
	return nil
}

// Transfer writes a single byte.
func (m *MemoryBus) Transfer(b byte) (byte, error) {
	return 0, m.Tx([]byte{b}, nil)
}

// SetError makes every following write fail with err. nil clears it.
func (m *MemoryBus) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// SetDelay makes every following write block for d.
func (m *MemoryBus) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Writes is the number of successful writes.
func (m *MemoryBus) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Last returns a copy of the most recent stream.
func (m *MemoryBus) Last() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.last))
	copy(out, m.last)
	return out
}
