package ws2812

import (
	"fmt"

	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// SPIBus writes to a hardware SPI port through periph.
type SPIBus struct {
	port spi.PortCloser
	conn spi.Conn
}

// OpenSPI initializes the host drivers and connects to the named port
// ("" picks the first one) at SPIFrequency, mode 0, 8 bits per word.
func OpenSPI(name string) (*SPIBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", name, err)
	}

	c, err := p.Connect(physic.Frequency(SPIFrequency)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("connect spi port %q: %w", name, err)
	}

	return &SPIBus{port: p, conn: c}, nil
}

func (b *SPIBus) Tx(w, r []byte) error {
	return b.conn.Tx(w, r)
}

func (b *SPIBus) Transfer(v byte) (byte, error) {
	r := make([]byte, 1)
	if err := b.conn.Tx([]byte{v}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (b *SPIBus) Close() error {
	return b.port.Close()
}
