// Package sht3x drives a Sensirion SHT3x temperature/humidity sensor
// over I2C. One measurement is a fixed two-byte command, a worst-case
// conversion wait, and a six-byte CRC-protected response.
package sht3x

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/denlab/airnode/pkg/crc"
)

// DefaultAddress is the SHT3x I2C address with the ADDR pin low.
const DefaultAddress i2c.Addr = 0x44

// Single-shot measurement, high repeatability, no clock stretching.
var cmdMeasure = []byte{0x24, 0x00}

// measureDelay is the datasheet worst-case conversion time for a high
// repeatability measurement.
const measureDelay = 16 * time.Millisecond

// Reading is one temperature/humidity sample. Temperature is carried in
// Fahrenheit because that is the unit of the transmitted payload; the
// gas sensor compensation path converts back to Celsius.
type Reading struct {
	TemperatureF float64
	Humidity     float64 // percent relative humidity
}

// Celsius returns the reading's temperature converted back to Celsius.
func (r Reading) Celsius() float64 {
	return (r.TemperatureF - 32.0) * 5.0 / 9.0
}

// Dev represents an SHT3x device on an I2C bus.
type Dev struct {
	d     *i2c.Dev
	sleep func(time.Duration)
}

// New returns a driver for an SHT3x at addr on bus.
func New(bus i2c.Bus, addr i2c.Addr) *Dev {
	return &Dev{
		d:     &i2c.Dev{Bus: bus, Addr: uint16(addr)},
		sleep: time.Sleep,
	}
}

// Read performs one single-shot measurement cycle and returns the
// converted reading. It fails if the bus transaction does not complete
// or if either word fails its CRC check.
func (d *Dev) Read() (Reading, error) {
	if err := d.d.Tx(cmdMeasure, nil); err != nil {
		return Reading{}, fmt.Errorf("sht3x: measure command: %w", err)
	}

	d.sleep(measureDelay)

	buf := make([]byte, 6)
	if err := d.d.Tx(nil, buf); err != nil {
		return Reading{}, fmt.Errorf("sht3x: response read: %w", err)
	}

	if crc.CRC8(buf[0:2]) != buf[2] {
		return Reading{}, fmt.Errorf("sht3x: temperature word CRC mismatch")
	}
	if crc.CRC8(buf[3:5]) != buf[5] {
		return Reading{}, fmt.Errorf("sht3x: humidity word CRC mismatch")
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])

	return Reading{
		TemperatureF: celsiusToFahrenheit(ticksToCelsius(rawT)),
		Humidity:     ticksToHumidity(rawH),
	}, nil
}

// ticksToCelsius maps the raw 16-bit value linearly onto -45..+130 degC.
func ticksToCelsius(ticks uint16) float64 {
	return -45.0 + 175.0*float64(ticks)/65535.0
}

// ticksToHumidity maps the raw 16-bit value linearly onto 0..100 %RH.
func ticksToHumidity(ticks uint16) float64 {
	return 100.0 * float64(ticks) / 65535.0
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}
