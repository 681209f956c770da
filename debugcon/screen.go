// Package debugcon implements the VGA text-mode debug sink and the
// logging handler built on top of it. The VGA buffer itself and the
// boot collaborator that maps it at 0xB8000 are external to this core
// per spec, but the writer that formats bytes into that buffer's
// (ascii, attribute) cell layout is ours to build and test hosted.
package debugcon

import "config"

// DefaultAttribute is light-grey-on-black, the conventional VGA text
// attribute byte for plain debug output.
const DefaultAttribute = 0x07

// Screen is an io.Writer over an 80x25 VGA text buffer: two bytes per
// cell (ASCII code point, attribute), line-wrapping and scrolling the
// same way a bare-metal debug console would.
type Screen struct {
	buf  []byte
	attr byte
	x, y int
}

// NewScreen wraps buf as a VGA text buffer. A nil buf allocates a fresh,
// zeroed buffer sized for config.VGAColumns x config.VGARows cells —
// the hosted stand-in for the fixed 0xB8000 framebuffer a //go:build
// baremetal target would instead point directly at.
func NewScreen(buf []byte) *Screen {
	if buf == nil {
		buf = make([]byte, config.VGAColumns*config.VGARows*2)
	}
	return &Screen{buf: buf, attr: DefaultAttribute}
}

// Bytes exposes the underlying framebuffer, mostly for tests that want
// to assert on exactly what landed in which cell.
func (s *Screen) Bytes() []byte {
	return s.buf
}

// Write implements io.Writer, translating each byte of p into a VGA
// cell, honoring '\n' as a line break.
func (s *Screen) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			s.newline()
			continue
		}
		s.putc(b)
	}
	return len(p), nil
}

func (s *Screen) putc(b byte) {
	offset := (s.y*config.VGAColumns + s.x) * 2
	s.buf[offset] = b
	s.buf[offset+1] = s.attr

	s.x++
	if s.x >= config.VGAColumns {
		s.newline()
	}
}

func (s *Screen) newline() {
	s.x = 0
	s.y++
	if s.y >= config.VGARows {
		s.scroll()
		s.y = config.VGARows - 1
	}
}

// scroll shifts every row up by one, clearing the freed bottom row.
func (s *Screen) scroll() {
	rowBytes := config.VGAColumns * 2
	copy(s.buf, s.buf[rowBytes:])
	last := s.buf[len(s.buf)-rowBytes:]
	for i := range last {
		if i%2 == 0 {
			last[i] = ' '
		} else {
			last[i] = s.attr
		}
	}
}
