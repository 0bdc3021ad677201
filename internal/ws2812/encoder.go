// Package ws2812 encodes pixel frames into the SPI bit patterns understood by
// WS2812 strips and drives a strip over a synchronous serial bus.
package ws2812

import "lightstrip-controller/internal/color"

const (
	// SPIFrequency is the bus clock the bit patterns are timed for.
	SPIFrequency = 32_000_000

	BytesPerBit   = 3
	BytesPerByte  = 8 * BytesPerBit
	BytesPerPixel = 3 * BytesPerByte
)

// Each protocol bit is stretched over three bus bytes so that the high and
// low phases land inside the WS2812 T0H/T1H windows at SPIFrequency.
var (
	oneBit  = [BytesPerBit]byte{0xFF, 0xFF, 0x00}
	zeroBit = [BytesPerBit]byte{0xFE, 0x00, 0x00}
)

// EncodeByte expands one channel value, most significant bit first.
func EncodeByte(v byte) [BytesPerByte]byte {
	var out [BytesPerByte]byte
	for i := 0; i < 8; i++ {
		pattern := zeroBit
		if v&(0x80>>i) != 0 {
			pattern = oneBit
		}
		copy(out[i*BytesPerBit:], pattern[:])
	}
	return out
}

// EncodePixel expands one pixel in the strip's green, red, blue wire order.
func EncodePixel(c color.PixelColor) [BytesPerPixel]byte {
	var out [BytesPerPixel]byte
	g, r, b := EncodeByte(c.G), EncodeByte(c.R), EncodeByte(c.B)
	copy(out[0:], g[:])
	copy(out[BytesPerByte:], r[:])
	copy(out[2*BytesPerByte:], b[:])
	return out
}

// EncodedLen is the size of the bus stream for n pixels.
func EncodedLen(n int) int {
	return n * BytesPerPixel
}

// Encode returns the bus stream for frame, pixels in address order.
func Encode(frame []color.PixelColor) []byte {
	return EncodeInto(make([]byte, EncodedLen(len(frame))), frame)
}

// EncodeInto writes the stream for frame into dst, growing it if needed,
// and returns the used slice.
func EncodeInto(dst []byte, frame []color.PixelColor) []byte {
	n := EncodedLen(len(frame))
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, c := range frame {
		px := EncodePixel(c)
		copy(dst[i*BytesPerPixel:], px[:])
	}
	return dst
}
