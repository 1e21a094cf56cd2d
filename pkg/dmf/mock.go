package dmf

import (
	"fmt"
	"sync"
)

// Mock simulates a control board for testing and development. Readings are
// scripted per channel: queued samples are returned first, in order, after
// which the channel's steady level is repeated indefinitely.
type Mock struct {
	mu        sync.Mutex
	connected bool

	queues map[Channel][]uint16
	levels map[Channel]uint16
	reads  map[Channel]int

	ref     Reference
	refLog  []Reference
	readErr error
}

// NewMock creates a new mocked control board. All channels read 0 until
// scripted with Enqueue or SetLevel.
func NewMock() *Mock {
	return &Mock{
		queues: make(map[Channel][]uint16),
		levels: make(map[Channel]uint16),
		reads:  make(map[Channel]int),
		ref:    ReferenceDefault,
	}
}

// Enqueue schedules samples to be returned by the next reads on ch, in order.
func (m *Mock) Enqueue(ch Channel, samples ...uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[ch] = append(m.queues[ch], samples...)
}

// SetLevel sets the steady reading returned on ch once its queue is drained.
func (m *Mock) SetLevel(ch Channel, value uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[ch] = value
}

// FailReads makes all subsequent raw reads return err. Reference switches
// still succeed. Pass nil to clear.
func (m *Mock) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Reads returns how many samples have been read from ch.
func (m *Mock) Reads(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[ch]
}

// Reference returns the currently selected voltage reference.
func (m *Mock) Reference() Reference {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ref
}

// ReferenceLog returns every reference switch in order.
func (m *Mock) ReferenceLog() []Reference {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := make([]Reference, len(m.refLog))
	copy(log, m.refLog)
	return log
}

// Connect simulates connecting to the board.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	return nil
}

// Close simulates disconnecting from the board.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// ReadRaw returns the next scripted sample for ch.
func (m *Mock) ReadRaw(ch Channel) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, fmt.Errorf("not connected")
	}
	if m.readErr != nil {
		return 0, m.readErr
	}

	m.reads[ch]++

	if queue := m.queues[ch]; len(queue) > 0 {
		value := queue[0]
		m.queues[ch] = queue[1:]
		return value, nil
	}

	return m.levels[ch], nil
}

// SetReference records a reference switch.
func (m *Mock) SetReference(ref Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.ref = ref
	m.refLog = append(m.refLog, ref)
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
