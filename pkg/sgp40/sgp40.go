// Package sgp40 drives a Sensirion SGP40 VOC sensor over I2C. Each
// measurement sends the raw-signal command with temperature/humidity
// compensation words and feeds the raw response into the persistent
// gas-index model from pkg/voc.
package sgp40

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/denlab/airnode/pkg/crc"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/voc"
)

// DefaultAddress is the fixed SGP40 I2C address.
const DefaultAddress i2c.Addr = 0x59

// sgp40_measure_raw_signal
var cmdMeasureRaw = []byte{0x26, 0x0F}

// measureDelay is the datasheet worst-case raw signal conversion time.
const measureDelay = 30 * time.Millisecond

// Compensation clamp bounds. Inputs outside the sensor's valid domain
// are clamped to the nearest bound, not rejected.
const (
	minHumidity = 0.0
	maxHumidity = 100.0
	minCelsius  = -45.0
	maxCelsius  = 130.0
)

// Measurement is the outcome of one gas read: the session gas index and
// the compensated raw ticks it was derived from.
type Measurement struct {
	Index int32
	Raw   uint16
}

// Dev represents an SGP40 device on an I2C bus. It owns the session's
// gas-index state; creating a second Dev mid-session would reset the
// index baseline and corrupt the series.
type Dev struct {
	d     *i2c.Dev
	algo  *voc.Algorithm
	sleep func(time.Duration)
}

// New returns a driver for an SGP40 at addr on bus, with its gas-index
// model keyed to samplingInterval.
func New(bus i2c.Bus, addr i2c.Addr, samplingInterval time.Duration) *Dev {
	return &Dev{
		d:     &i2c.Dev{Bus: bus, Addr: uint16(addr)},
		algo:  voc.New(samplingInterval),
		sleep: time.Sleep,
	}
}

// Read performs one compensated raw measurement using the just-obtained
// temperature/humidity reading and advances the gas-index model. It
// must be called once per successful raw reading, in chronological
// order.
func (d *Dev) Read(env sht3x.Reading) (Measurement, error) {
	frame := commandFrame(env.Humidity, env.Celsius())
	if err := d.d.Tx(frame, nil); err != nil {
		return Measurement{}, fmt.Errorf("sgp40: measure command: %w", err)
	}

	d.sleep(measureDelay)

	buf := make([]byte, 3)
	if err := d.d.Tx(nil, buf); err != nil {
		return Measurement{}, fmt.Errorf("sgp40: response read: %w", err)
	}
	if crc.CRC8(buf[0:2]) != buf[2] {
		return Measurement{}, fmt.Errorf("sgp40: raw word CRC mismatch")
	}

	raw := uint16(buf[0])<<8 | uint16(buf[1])
	return Measurement{Index: d.algo.Update(raw), Raw: raw}, nil
}

// commandFrame builds the 8-byte measure frame: command bytes plus the
// humidity and temperature compensation words, each followed by its
// CRC-8.
func commandFrame(humidity, celsius float64) []byte {
	rh := humidityTicks(humidity)
	t := temperatureTicks(celsius)

	frame := make([]byte, 0, 8)
	frame = append(frame, cmdMeasureRaw...)
	frame = append(frame, byte(rh>>8), byte(rh))
	frame = append(frame, crc.CRC8(frame[2:4]))
	frame = append(frame, byte(t>>8), byte(t))
	frame = append(frame, crc.CRC8(frame[5:7]))
	return frame
}

// humidityTicks rescales percent relative humidity to the sensor's
// 16-bit compensation ticks, clamping to 0..100 %.
func humidityTicks(rh float64) uint16 {
	rh = clamp(rh, minHumidity, maxHumidity)
	return uint16(rh*65535.0/100.0 + 0.5)
}

// temperatureTicks rescales degrees Celsius to the sensor's 16-bit
// compensation ticks, clamping to -45..130 degC.
func temperatureTicks(c float64) uint16 {
	c = clamp(c, minCelsius, maxCelsius)
	return uint16((c+45.0)*65535.0/175.0 + 0.5)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
