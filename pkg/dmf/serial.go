package dmf

import (
	"bufio"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the control board MCU.
	DefaultBaudRate = 115200
	// DefaultResolutionBits is the ADC resolution of the control board.
	DefaultResolutionBits = 16
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the control board MCU. Raw reads and
// reference switches are line-oriented request/response transactions:
//
//	"a<channel>\n" -> "<decimal sample>\n"
//	"ri\n" / "rd\n" -> "k\n"
//
// A single transaction is in flight at a time; concurrent callers serialize
// on the connection mutex.
type Serial struct {
	port     string
	baudRate int
	maxCount uint16

	conn      serial.Port
	reader    *bufio.Reader
	mu        sync.Mutex
	connected bool
}

// New creates a new Serial device for the given port, baud rate, and ADC
// resolution. Zero values select the board defaults.
func New(port string, baudRate int, resolutionBits uint) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if resolutionBits == 0 {
		resolutionBits = DefaultResolutionBits
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		maxCount: uint16((uint32(1) << resolutionBits) - 1),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	conn, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = conn
	d.reader = bufio.NewReader(conn)
	d.connected = true

	return nil
}

// Close closes the connection.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
		d.reader = nil
	}

	d.connected = false

	return nil
}

// ReadRaw requests one analog-to-digital conversion on the given channel and
// returns the raw sample.
func (d *Serial) ReadRaw(ch Channel) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	line, err := d.transact(fmt.Sprintf("a%d\n", ch))
	if err != nil {
		return 0, fmt.Errorf("failed to read channel %d: %w", ch, err)
	}

	sample, err := parseSample(line, d.maxCount)
	if err != nil {
		return 0, fmt.Errorf("invalid reply for channel %d: %w", ch, err)
	}

	return sample, nil
}

// SetReference switches the voltage reference used for subsequent
// conversions. The board acknowledges the switch before the next read.
func (d *Serial) SetReference(ref Reference) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd, err := referenceCommand(ref)
	if err != nil {
		return err
	}

	line, err := d.transact(cmd)
	if err != nil {
		return fmt.Errorf("failed to set reference: %w", err)
	}
	if line != "k" {
		return fmt.Errorf("failed to set reference: unexpected reply %q", line)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// transact writes one command line and reads one reply line. Callers must
// hold the connection mutex.
func (d *Serial) transact(cmd string) (string, error) {
	if !d.connected {
		return "", fmt.Errorf("not connected")
	}

	if _, err := d.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("write failed: %w", err)
	}

	line, err := d.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// referenceCommand maps a Reference to its wire command.
func referenceCommand(ref Reference) (string, error) {
	switch ref {
	case ReferenceDefault:
		return "rd\n", nil
	case ReferenceInternal:
		return "ri\n", nil
	default:
		return "", fmt.Errorf("unknown reference mode %d", ref)
	}
}

// parseSample parses a sample reply line from the MCU and validates it
// against the ADC range.
func parseSample(line string, maxCount uint16) (uint16, error) {
	value, err := strconv.ParseUint(line, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid sample: %w", err)
	}
	if value > uint64(maxCount) {
		return 0, fmt.Errorf("sample out of range: %d (max %d)", value, maxCount)
	}

	return uint16(value), nil
}
