// Package pms decodes the continuous binary frame stream of a Plantower
// PMS5003 particulate sensor. The sensor emits self-framed data on its
// own cadence, so the decoder is polled: it buffers whatever bytes have
// arrived, resynchronizes on the frame header, and reports ErrNoFrame
// until a complete, checksum-valid frame is available.
package pms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/denlab/airnode/pkg/crc"
)

const (
	// DefaultBaudRate is the PMS5003 fixed baud rate.
	DefaultBaudRate = 9600

	header0 = 0x42
	header1 = 0x4D

	// declaredLen is the expected value of the frame's length field:
	// 26 measurement bytes plus the 2-byte checksum.
	declaredLen = 28

	// frameSize is the full frame on the wire: header, length field,
	// measurement data, checksum.
	frameSize = 32

	// maxBuffer bounds the scan buffer; a desynced stream can at worst
	// cost the data buffered beyond this point.
	maxBuffer = 2048
)

// ErrNoFrame reports that no complete frame is buffered yet. The caller
// should poll again later; it is not a failure.
var ErrNoFrame = errors.New("pms: no complete frame buffered")

// Reading is one decoded particulate sample in ug/m3, atmospheric
// calibration. The frame also carries "standard particle" values, which
// are ignored.
type Reading struct {
	PM1  uint16
	PM25 uint16
	PM10 uint16
}

// Decoder scans an unbounded byte stream for valid frames.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder returns a Decoder reading from r. With a real serial port,
// r should return promptly with whatever bytes are pending.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// TryRead pulls pending bytes from the stream and attempts to decode
// one frame. It returns ErrNoFrame when the buffer does not yet hold a
// complete frame, and a decode error only on stream read failure.
// Invalid frames (bad length or checksum) are skipped silently; the
// scan resumes at the next header candidate, so desync is self-healing.
func (d *Decoder) TryRead() (Reading, error) {
	if err := d.fill(); err != nil {
		return Reading{}, err
	}

	for {
		d.sync()
		if len(d.buf) < frameSize {
			return Reading{}, ErrNoFrame
		}

		frame := d.buf[:frameSize]
		if r, ok := decodeFrame(frame); ok {
			d.buf = d.buf[frameSize:]
			return r, nil
		}

		// Corrupt candidate. Drop the header bytes and rescan.
		d.buf = d.buf[2:]
	}
}

// fill appends whatever bytes are currently readable.
func (d *Decoder) fill() error {
	chunk := make([]byte, 512)
	n, err := d.r.Read(chunk)
	if n > 0 {
		d.buf = append(d.buf, chunk[:n]...)
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("pms: stream read: %w", err)
	}
	// Bound the backlog, keeping the newest bytes. Frames lost here are
	// ordinary data loss for the window, same as any desync.
	if len(d.buf) > maxBuffer {
		d.buf = append(d.buf[:0:0], d.buf[len(d.buf)-maxBuffer:]...)
	}
	return nil
}

// sync discards bytes preceding the next header candidate.
func (d *Decoder) sync() {
	for i := 0; i+1 < len(d.buf); i++ {
		if d.buf[i] == header0 && d.buf[i+1] == header1 {
			d.buf = d.buf[i:]
			return
		}
	}
	// No header; at most the last byte could start one.
	if n := len(d.buf); n > 1 {
		d.buf = d.buf[n-1:]
	}
}

// decodeFrame validates one frame-sized slice starting at a header and
// extracts the atmospheric mass concentrations.
func decodeFrame(frame []byte) (Reading, bool) {
	if binary.BigEndian.Uint16(frame[2:4]) != declaredLen {
		return Reading{}, false
	}

	if crc.Sum16(frame[:frameSize-2]) != binary.BigEndian.Uint16(frame[frameSize-2:]) {
		return Reading{}, false
	}

	// Measurement data starts after the length field. Words 0..2 are
	// the "standard particle" calibration; words 3..5 are atmospheric.
	return Reading{
		PM1:  binary.BigEndian.Uint16(frame[10:12]),
		PM25: binary.BigEndian.Uint16(frame[12:14]),
		PM10: binary.BigEndian.Uint16(frame[14:16]),
	}, true
}
