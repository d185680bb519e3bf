package pcd8544

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Channel sends bytes to the controller.
//
// Transmit sends b MSB first with the D/C line set for data (isData) or a
// command. It must not return before the byte is on the wire.
type Channel interface {
	Transmit(b byte, isData bool) error
}

// Selector is implemented by channels that drive the chip enable (SCE) line
// themselves. Select(true) is called before a Dev operation sends anything
// and Select(false) once it is done.
type Selector interface {
	Select(enable bool) error
}

// SPIChannel sends bytes over an SPI connection with a separate D/C pin.
type SPIChannel struct {
	c  conn.Conn
	dc gpio.PinOut

	level gpio.Level
	known bool
	w     [1]byte
}

// NewSPIChannel returns a Channel over an already connected SPI conn.
func NewSPIChannel(c conn.Conn, dc gpio.PinOut) (*SPIChannel, error) {
	if c == nil {
		return nil, errors.New("pcd8544: nil SPI connection")
	}
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("pcd8544: a D/C pin is required")
	}
	return &SPIChannel{c: c, dc: dc}, nil
}

// Transmit implements Channel. The D/C pin is only toggled when the kind of
// byte changes.
func (s *SPIChannel) Transmit(b byte, isData bool) error {
	l := gpio.Level(isData)
	if !s.known || s.level != l {
		if err := s.dc.Out(l); err != nil {
			s.known = false
			return err
		}
		s.level, s.known = l, true
	}
	s.w[0] = b
	return s.c.Tx(s.w[:], nil)
}

func (s *SPIChannel) String() string {
	return fmt.Sprintf("%s, %s", s.c, s.dc)
}

// NewSPI returns a Dev object that communicates over SPI to a PCD8544
// display controller.
//
// The PCD8544 accepts up to 4MHz, Mode0, 8 bits words. The SCE line is the
// SPI CS line.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("pcd8544: a D/C pin is required")
	}
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	ch, err := NewSPIChannel(c, dc)
	if err != nil {
		return nil, err
	}
	return New(ch, opts)
}

// GPIOChannel bit-bangs the serial interface on four GPIO pins.
//
// The PCD8544 requires clock high and low phases of at least 100ns and a
// 250ns clock period. Hold is waited after each clock edge; leave it at zero
// when toggling a pin takes longer than that on the host.
type GPIOChannel struct {
	Clk gpio.PinOut // SCLK
	Din gpio.PinOut // SDIN
	DC  gpio.PinOut // D/C
	CE  gpio.PinOut // SCE, active low (optional, nil if tied to ground)

	Hold time.Duration
}

// Transmit implements Channel.
func (g *GPIOChannel) Transmit(b byte, isData bool) error {
	var eh pinWriter
	eh.out(g.DC, gpio.Level(isData))
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		eh.out(g.Din, gpio.Level(b&mask != 0))
		eh.out(g.Clk, gpio.High)
		g.wait()
		eh.out(g.Clk, gpio.Low)
		g.wait()
	}
	return eh.err
}

// Select implements Selector.
func (g *GPIOChannel) Select(enable bool) error {
	if g.CE == nil {
		return nil
	}
	return g.CE.Out(gpio.Level(!enable))
}

func (g *GPIOChannel) wait() {
	if g.Hold > 0 {
		time.Sleep(g.Hold)
	}
}

func (g *GPIOChannel) String() string {
	return fmt.Sprintf("GPIO{clk:%s, din:%s, dc:%s}", g.Clk, g.Din, g.DC)
}

// pinWriter is a wrapper for error management: once a pin write fails, the
// following ones are skipped.
type pinWriter struct {
	err error
}

func (eh *pinWriter) out(p gpio.PinOut, l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = p.Out(l)
}

// NewGPIO returns a Dev object that bit-bangs the PCD8544 serial interface.
func NewGPIO(g *GPIOChannel, opts *Opts) (*Dev, error) {
	if g == nil || g.Clk == nil || g.Din == nil || g.DC == nil {
		return nil, errors.New("pcd8544: Clk, Din and DC pins are required")
	}
	var eh pinWriter
	eh.out(g.Clk, gpio.Low)
	if g.CE != nil {
		eh.out(g.CE, gpio.High)
	}
	if eh.err != nil {
		return nil, eh.err
	}
	return New(g, opts)
}

var _ Channel = &SPIChannel{}
var _ Channel = &GPIOChannel{}
var _ Selector = &GPIOChannel{}
