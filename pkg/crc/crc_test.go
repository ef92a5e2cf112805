package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "datasheet example BEEF",
			data: []byte{0xBE, 0xEF},
			want: 0x92,
		},
		{
			name: "zero word",
			data: []byte{0x00, 0x00},
			want: 0x81,
		},
		{
			name: "default humidity ticks 0x8000",
			data: []byte{0x80, 0x00},
			want: 0xA2,
		},
		{
			name: "empty input is initial value",
			data: nil,
			want: 0xFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CRC8(tt.data))
		})
	}
}

func TestCRC8_SingleByteCorruption(t *testing.T) {
	word := []byte{0x12, 0x34}
	good := CRC8(word)

	// Flipping any single bit in either byte must change the CRC.
	for i := 0; i < 2; i++ {
		for bit := 0; bit < 8; bit++ {
			bad := []byte{word[0], word[1]}
			bad[i] ^= 1 << bit
			assert.NotEqual(t, good, CRC8(bad), "corruption at byte %d bit %d went undetected", i, bit)
		}
	}
}

func TestSum16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty",
			data: nil,
			want: 0,
		},
		{
			name: "header only",
			data: []byte{0x42, 0x4D},
			want: 0x8F,
		},
		{
			name: "wraps at 16 bits",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF},
			want: 0x03FC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sum16(tt.data))
		})
	}
}
