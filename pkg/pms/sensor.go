package pms

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// pollTimeout keeps Poll from blocking the sampling loop: the port read
// returns with whatever bytes are pending after at most this long.
const pollTimeout = 20 * time.Millisecond

// Sensor owns the serial connection to a PMS5003 and a Decoder over it.
type Sensor struct {
	port string
	baud int

	conn      serial.Port
	dec       *Decoder
	connected bool
}

// NewSensor creates a Sensor for the named serial port. A baud of 0
// selects the sensor's fixed default rate.
func NewSensor(port string, baud int) *Sensor {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &Sensor{port: port, baud: baud}
}

// Connect opens the serial port.
func (s *Sensor) Connect() error {
	if s.connected {
		return fmt.Errorf("pms: already connected")
	}

	conn, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("pms: failed to open serial port %s: %w", s.port, err)
	}
	if err := conn.SetReadTimeout(pollTimeout); err != nil {
		conn.Close()
		return fmt.Errorf("pms: failed to set read timeout: %w", err)
	}

	s.conn = conn
	s.dec = NewDecoder(conn)
	s.connected = true
	return nil
}

// Close closes the serial port.
func (s *Sensor) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("pms: failed to close serial port: %w", err)
	}
	return nil
}

// IsConnected returns whether the serial port is open.
func (s *Sensor) IsConnected() bool {
	return s.connected
}

// Poll attempts to decode one frame from the stream. It returns
// ErrNoFrame when the sensor has not emitted a complete frame since the
// last poll.
func (s *Sensor) Poll() (Reading, error) {
	if !s.connected {
		return Reading{}, fmt.Errorf("pms: not connected")
	}
	return s.dec.TryRead()
}
