// Package crc provides the byte-level integrity primitives shared by the
// sensor drivers: the Sensirion CRC-8 used on I2C word transfers and the
// 16-bit additive checksum used by the particulate frame format.
package crc

// CRC8 computes the Sensirion CRC-8 over data.
// Polynomial 0x31 (x^8 + x^5 + x^4 + 1), initial value 0xFF, MSB first,
// no final XOR. Protects every 16-bit word on the SHT3x and SGP40 buses.
func CRC8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Sum16 returns the 16-bit additive checksum of data: the plain sum of
// all bytes truncated to 16 bits. The particulate sensor appends this,
// big-endian, over the frame header and measurement bytes.
func Sum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}
