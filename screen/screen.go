// Package screen emulates a PCD8544 controller and renders its RAM to a
// terminal.
//
// Dev decodes the same byte stream a real controller receives, including
// its address counters and addressing modes, so it can stand in for the
// hardware while you are waiting for your display to come by mail, or in
// tests to check what a driver actually sent.
package screen

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"golang.org/x/term"
)

// ErrUnknownCommand is returned for a command byte the controller does not
// implement in the current instruction set.
var ErrUnknownCommand = errors.New("screen: unknown command")

// Display control modes (D and E bits).
const (
	Blank   = 0x00
	AllOn   = 0x01
	Normal  = 0x04
	Inverse = 0x05
)

// Opts represents the options available for this display.
type Opts struct {
	W int // Width in pixels (default: 84)
	H int // Height in pixels, multiple of 8 (default: 48)

	Palette *ansi256.Palette
	On      color.Color // Color of a lit pixel (default: near black)
	Off     color.Color // Color of a clear pixel (default: a pale green)

	_ struct{}
}

// Dev is an emulated PCD8544 controller.
type Dev struct {
	w       io.Writer
	tty     bool
	palette ansi256.Palette
	on, off color.NRGBA

	width, pages int
	ram          []byte
	x, y         int

	powerDown, vertical, extended bool
	display                       byte
	vop, bias, tc                 byte

	buf bytes.Buffer
}

// New returns a Dev that renders to the console.
func New(opts *Opts) *Dev {
	d := NewWriter(colorable.NewColorableStdout(), opts)
	d.tty = term.IsTerminal(int(os.Stdout.Fd()))
	return d
}

// NewWriter returns a Dev that renders to w. ANSI colors are only used when
// w is a terminal.
func NewWriter(w io.Writer, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	width, height := opts.W, opts.H
	if width <= 0 {
		width = 84
	}
	if height <= 0 {
		height = 48
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	on, off := color.NRGBA{0x10, 0x18, 0x10, 0xFF}, color.NRGBA{0x9C, 0xBC, 0x90, 0xFF}
	if opts.On != nil {
		on = color.NRGBAModel.Convert(opts.On).(color.NRGBA)
	}
	if opts.Off != nil {
		off = color.NRGBAModel.Convert(opts.Off).(color.NRGBA)
	}
	d := &Dev{
		w:       w,
		tty:     isTerminal(w),
		palette: *p,
		on:      on,
		off:     off,
		width:   width,
		pages:   (height + 7) / 8,
		ram:     make([]byte, width*((height+7)/8)),
		// Power-on state: power-down, horizontal addressing, basic set.
		powerDown: true,
	}
	return d
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (d *Dev) String() string {
	return fmt.Sprintf("screen.Dev{%dx%d}", d.width, d.pages*8)
}

// Transmit decodes one byte as the controller would.
func (d *Dev) Transmit(b byte, isData bool) error {
	if isData {
		if d.powerDown {
			return nil
		}
		d.ram[d.y*d.width+d.x] = b
		d.increment()
		return nil
	}
	return d.command(b)
}

func (d *Dev) command(b byte) error {
	switch {
	case b == 0x00:
		// NOP
	case b&0xF8 == 0x20:
		d.powerDown = b&0x04 != 0
		d.vertical = b&0x02 != 0
		d.extended = b&0x01 != 0
	case d.extended:
		switch {
		case b&0x80 != 0:
			d.vop = b & 0x7F
		case b&0xF8 == 0x10:
			d.bias = b & 0x07
		case b&0xFC == 0x04:
			d.tc = b & 0x03
		default:
			return fmt.Errorf("%w: 0x%02X (extended)", ErrUnknownCommand, b)
		}
	case b&0x80 != 0:
		x := int(b & 0x7F)
		if x >= d.width {
			return fmt.Errorf("screen: X address %d out of range", x)
		}
		d.x = x
	case b&0xF8 == 0x40:
		y := int(b & 0x07)
		if y >= d.pages {
			return fmt.Errorf("screen: Y address %d out of range", y)
		}
		d.y = y
	case b&0xFA == 0x08:
		d.display = b & 0x05
	default:
		return fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, b)
	}
	return nil
}

// increment mimics the address counters after a data byte.
func (d *Dev) increment() {
	if d.vertical {
		if d.y++; d.y == d.pages {
			d.y = 0
			if d.x++; d.x == d.width {
				d.x = 0
			}
		}
		return
	}
	if d.x++; d.x == d.width {
		d.x = 0
		if d.y++; d.y == d.pages {
			d.y = 0
		}
	}
}

// RAM returns a copy of the display RAM, in the page layout of
// image1bit.VerticalLSB.Pix from periph.io/x/devices/v3/ssd1306/image1bit.
func (d *Dev) RAM() []byte {
	return append([]byte(nil), d.ram...)
}

// Address returns the X and Y (page) address counters.
func (d *Dev) Address() (x, page int) {
	return d.x, d.y
}

// Vertical reports whether vertical addressing is selected.
func (d *Dev) Vertical() bool {
	return d.vertical
}

// PowerDown reports whether the controller is in power-down mode.
func (d *Dev) PowerDown() bool {
	return d.powerDown
}

// DisplayMode returns the D and E bits of the display control register.
func (d *Dev) DisplayMode() byte {
	return d.display
}

// Registers returns the extended instruction set registers.
func (d *Dev) Registers() (vop, bias, tc byte) {
	return d.vop, d.bias, d.tc
}

// Lit reports whether the pixel at (x, y) is visible, taking the display
// mode and power state into account.
func (d *Dev) Lit(x, y int) bool {
	if d.powerDown {
		return false
	}
	switch d.display {
	case Blank:
		return false
	case AllOn:
		return true
	}
	on := d.ram[(y/8)*d.width+x]&(1<<uint(y&7)) != 0
	if d.display == Inverse {
		return !on
	}
	return on
}

// Render writes the visible content, one character cell per pixel.
func (d *Dev) Render() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	onBlock, offBlock := "#", "."
	if d.tty {
		onBlock, offBlock = d.palette.Block(d.on), d.palette.Block(d.off)
	}
	for y := 0; y < d.pages*8; y++ {
		for x := 0; x < d.width; x++ {
			if d.Lit(x, y) {
				_, _ = d.buf.WriteString(onBlock)
			} else {
				_, _ = d.buf.WriteString(offBlock)
			}
		}
		if d.tty {
			_, _ = d.buf.WriteString("\033[0m")
		}
		_ = d.buf.WriteByte('\n')
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not corrupted.
func (d *Dev) Halt() error {
	if !d.tty {
		return nil
	}
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}
