package ws2812

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const DefaultSerialBaud = 115200

// SerialBus forwards the encoded stream to a USB serial bridge that clocks it
// out to the strip.
type SerialBus struct {
	port serial.Port
	name string
}

// DiscoverSerialPort returns the first USB serial port, or the first port of
// any kind when no USB port is present.
func DiscoverSerialPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate ports: %w", err)
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	return ports[0].Name, nil
}

// OpenSerial opens name at baud. An empty name triggers discovery.
func OpenSerial(name string, baud int) (*SerialBus, error) {
	if name == "" {
		found, err := DiscoverSerialPort()
		if err != nil {
			return nil, err
		}
		name = found
	}
	if baud <= 0 {
		baud = DefaultSerialBaud
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", name, err)
	}
	return &SerialBus{port: port, name: name}, nil
}

// Name is the device path in use.
func (b *SerialBus) Name() string { return b.name }

func (b *SerialBus) Tx(w, r []byte) error {
	for len(w) > 0 {
		n, err := b.port.Write(w)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		w = w[n:]
	}
	return nil
}

func (b *SerialBus) Transfer(v byte) (byte, error) {
	return 0, b.Tx([]byte{v}, nil)
}

func (b *SerialBus) Close() error {
	return b.port.Close()
}
