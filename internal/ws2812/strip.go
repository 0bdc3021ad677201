package ws2812

import (
	"fmt"
	"io"
	"time"

	"tinygo.org/x/drivers"

	"lightstrip-controller/internal/color"
)

const (
	MaxPixels           = 1024
	DefaultPages        = 2
	DefaultWriteTimeout = 100 * time.Millisecond
)

// Strip owns a fixed number of pixel pages for one strip and renders them
// onto a bus. A Strip is not safe for concurrent use; the render loop owns it.
type Strip struct {
	bus     drivers.SPI
	count   int
	pages   [][]color.PixelColor
	current int
	timeout time.Duration

	buf      []byte
	inflight chan struct{}
}

// Option configures a Strip.
type Option func(*Strip)

// WithWriteTimeout bounds how long Render waits on the bus. Zero waits forever.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Strip) { s.timeout = d }
}

// New creates a strip of count pixels with the given number of pages, all black.
func New(bus drivers.SPI, count, pages int, opts ...Option) (*Strip, error) {
	if count <= 0 || count > MaxPixels {
		return nil, fmt.Errorf("%w: %d (1-%d)", ErrTooManyPixels, count, MaxPixels)
	}
	if pages <= 0 {
		return nil, fmt.Errorf("%w: strip needs at least one page, got %d", ErrPageOutOfRange, pages)
	}
	s := &Strip{
		bus:      bus,
		count:    count,
		pages:    make([][]color.PixelColor, pages),
		current:  -1,
		timeout:  DefaultWriteTimeout,
		buf:      make([]byte, EncodedLen(count)),
		inflight: make(chan struct{}, 1),
	}
	for i := range s.pages {
		s.pages[i] = make([]color.PixelColor, count)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Len is the number of pixels per page.
func (s *Strip) Len() int { return s.count }

// Pages is the number of pages.
func (s *Strip) Pages() int { return len(s.pages) }

// LastRendered returns the page most recently written to the bus, or -1.
func (s *Strip) LastRendered() int { return s.current }

func (s *Strip) checkPage(page int) error {
	if page < 0 || page >= len(s.pages) {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, len(s.pages))
	}
	return nil
}

// Fill sets every pixel of page to c.
func (s *Strip) Fill(page int, c color.PixelColor) error {
	if err := s.checkPage(page); err != nil {
		return err
	}
	p := s.pages[page]
	for i := range p {
		p[i] = c
	}
	return nil
}

// Clear fills page with black.
func (s *Strip) Clear(page int) error {
	return s.Fill(page, color.Black)
}

// SetPixel sets a single pixel.
func (s *Strip) SetPixel(page, index int, c color.PixelColor) error {
	if err := s.checkPage(page); err != nil {
		return err
	}
	if index < 0 || index >= s.count {
		return fmt.Errorf("%w: led %d of %d", ErrIndexOutOfRange, index, s.count)
	}
	s.pages[page][index] = c
	return nil
}

// SetPage replaces the whole page. colors must hold exactly Len pixels.
func (s *Strip) SetPage(page int, colors []color.PixelColor) error {
	if err := s.checkPage(page); err != nil {
		return err
	}
	if len(colors) != s.count {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameLength, len(colors), s.count)
	}
	copy(s.pages[page], colors)
	return nil
}

// Page returns a copy of the page contents.
func (s *Strip) Page(page int) ([]color.PixelColor, error) {
	if err := s.checkPage(page); err != nil {
		return nil, err
	}
	out := make([]color.PixelColor, s.count)
	copy(out, s.pages[page])
	return out, nil
}

// Render encodes page and writes it to the bus. If a previous write is still
// running (it timed out but the bus never returned) Render fails immediately.
func (s *Strip) Render(page int) error {
	if err := s.checkPage(page); err != nil {
		return err
	}

	select {
	case s.inflight <- struct{}{}:
	default:
		return fmt.Errorf("%w: %w", ErrTransport, ErrBusBusy)
	}

	s.buf = EncodeInto(s.buf, s.pages[page])
	done := make(chan error, 1)
	go func(data []byte) {
		err := s.bus.Tx(data, nil)
		<-s.inflight
		done <- err
	}(s.buf)

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	case <-timeout:
		return fmt.Errorf("%w: write timed out after %s", ErrTransport, s.timeout)
	}

	s.current = page
	return nil
}

// Close releases the bus if it holds any resources.
func (s *Strip) Close() error {
	if c, ok := s.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
