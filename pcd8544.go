// Package pcd8544 controls a monochrome LCD driven by a PCD8544 controller,
// as found on Nokia 5110 and 3310 displays.
//
// See doc.go for how to use this package.
package pcd8544

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

var (
	// ErrNotInitialized is returned when the Dev has no channel to the
	// controller.
	ErrNotInitialized = errors.New("pcd8544: not initialized")
	// ErrOutOfRange is returned for pixel coordinates outside the display and
	// for register values that do not fit their encoding.
	ErrOutOfRange = errors.New("pcd8544: out of range")
	// ErrOutOfBounds is returned when a region does not fit the display.
	ErrOutOfBounds = errors.New("pcd8544: region out of bounds")
	// ErrInvalidMode is returned for an unknown display mode or traversal.
	ErrInvalidMode = errors.New("pcd8544: invalid mode")
	// ErrShortData is returned when a region's source holds fewer bytes than
	// its geometry and layout require.
	ErrShortData = errors.New("pcd8544: source data too short")
	// ErrHalted is returned when the controller is in power-down mode.
	ErrHalted = errors.New("pcd8544: halted")
)

// Opts is the configuration for the PCD8544 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 84, at most 128)
	H int // Height (default: 48, multiple of 8, at most 64)

	// Extended registers programmed at initialization
	Bias byte // Bias system, 0-7
	Vop  byte // Operating voltage (contrast), 0-0x7F
	TC   byte // Temperature coefficient, 0-3

	// Optional hardware reset pin
	RST gpio.PinIO // Reset pin (optional, nil if not used)
}

// DefaultOpts is the configuration of the common 84x48 Nokia 5110 module.
var DefaultOpts = Opts{
	W:    84,
	H:    48,
	Bias: 4,
	Vop:  0x3F,
	TC:   0,
}

// Dev is an open handle to the display controller.
//
// A Dev is not safe for concurrent use. The pixel buffer, the cursor and the
// channel form one shared resource; callers must serialize access.
type Dev struct {
	// Communication
	ch  Channel
	rst gpio.PinIO

	// Display geometry
	rect image.Rectangle

	// Pixel buffers
	buf  pixelBuffer            // Mirror of the display RAM
	next *image1bit.VerticalLSB // For lazy double buffering in Draw

	// Controller state
	cur           cursor
	bias, vop, tc byte
	display       DisplayMode
	powerDown     bool
	halted        bool
}

// New returns a Dev that talks to the controller through ch.
//
// opts can be nil to use DefaultOpts. The controller is initialized and its
// RAM cleared before New returns.
func New(ch Channel, opts *Opts) (*Dev, error) {
	if ch == nil {
		return nil, ErrNotInitialized
	}
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if opts.W <= 0 || opts.W > 128 {
		return nil, errors.New("pcd8544: width must be between 1 and 128")
	}
	if opts.H < 8 || opts.H > 64 || opts.H&7 != 0 {
		return nil, errors.New("pcd8544: height must be a multiple of 8 between 8 and 64")
	}

	rect := image.Rect(0, 0, opts.W, opts.H)
	d := &Dev{
		ch:      ch,
		rst:     opts.RST,
		rect:    rect,
		buf:     newPixelBuffer(rect),
		cur:     newCursor(opts.W, opts.H/8),
		display: DisplayBlank,
	}
	if err := d.init(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// init sends the initialization sequence to the display.
func (d *Dev) init(opts *Opts) error {
	if d.rst != nil {
		// The address counters are reset to (0, 0), horizontal addressing.
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("pcd8544: failed to pull RST low: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("pcd8544: failed to pull RST high: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
	} else {
		// Without a reset the counters hold whatever a previous user left.
		d.cur.desync()
	}

	if err := d.SetExtended(opts.Bias, opts.Vop, opts.TC); err != nil {
		return err
	}
	if err := d.SetDisplayMode(DisplayNormal); err != nil {
		return err
	}
	return d.Clear()
}

func (d *Dev) String() string {
	return fmt.Sprintf("pcd8544.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Buffer returns the pixel buffer mirroring the display RAM.
//
// It must be treated as read-only; use Blit, DrawPixel, Draw or Write to
// change pixels so the display stays in sync.
func (d *Dev) Buffer() *image1bit.VerticalLSB {
	return d.buf.VerticalLSB
}

// Pixel returns the state of the pixel at (x, y).
func (d *Dev) Pixel(x, y int) (bool, error) {
	return d.buf.Get(x, y)
}

// Draw implements display.Drawer.
//
// It draws synchronously. Only the smallest rectangle of pages that changed
// is sent, as one opaque column blit.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if err := d.ready(); err != nil {
		return err
	}

	// draw.Draw clips dst to the frame and shifts sp to match.
	if dst.Intersect(d.rect).Empty() {
		return nil
	}

	next := d.next
	if img, ok := src.(*image1bit.VerticalLSB); ok && dst == d.rect && img.Rect == d.rect && sp == (image.Point{}) {
		// Exact size, full frame, image1bit encoding: fast path!
		next = img
	} else {
		// Double buffering.
		if next == nil {
			d.next = image1bit.NewVerticalLSB(d.rect)
			next = d.next
		}
		copy(next.Pix, d.buf.Pix)
		draw.Draw(next, dst, src, sp, draw.Src)
	}

	minCol, maxCol, minPage, maxPage := d.calculateDiff(next)
	if minCol > maxCol {
		// No changes
		return nil
	}
	return d.Blit(extractRegion(next, minCol, maxCol, minPage, maxPage), Columns)
}

// calculateDiff compares the buffer with next to find the smallest changed
// block of pages. Returns (1, 0, 0, 0) if nothing changed.
func (d *Dev) calculateDiff(next *image1bit.VerticalLSB) (minCol, maxCol, minPage, maxPage int) {
	width := d.rect.Dx()
	pages := d.buf.Pages()

	minCol, maxCol = width, -1
	minPage, maxPage = pages, -1

	for page := 0; page < pages; page++ {
		start := page * width
		end := start + width
		if bytes.Equal(d.buf.Pix[start:end], next.Pix[start:end]) {
			continue
		}
		if page < minPage {
			minPage = page
		}
		maxPage = page
		for x := 0; x < width; x++ {
			if d.buf.Pix[start+x] != next.Pix[start+x] {
				if x < minCol {
					minCol = x
				}
				if x > maxCol {
					maxCol = x
				}
			}
		}
	}
	if maxCol < 0 {
		return 1, 0, 0, 0
	}
	return minCol, maxCol, minPage, maxPage
}

// extractRegion packs a block of pages of img as a padded, column-major,
// opaque region. Each page byte is already one 8 pixel run of a column.
func extractRegion(img *image1bit.VerticalLSB, minCol, maxCol, minPage, maxPage int) Region {
	pages := maxPage - minPage + 1
	data := make([]byte, 0, (maxCol-minCol+1)*pages)
	for x := minCol; x <= maxCol; x++ {
		for page := minPage; page <= maxPage; page++ {
			data = append(data, img.Pix[page*img.Stride+x])
		}
	}
	return Region{
		X:      minCol,
		Y:      minPage * 8,
		W:      maxCol - minCol + 1,
		H:      pages * 8,
		Data:   data,
		Padded: true,
		Opaque: true,
	}
}

// Write writes a buffer of pixels to the display.
//
// The format is the one of image1bit.VerticalLSB.Pix: horizontal bands of 8
// pixels high, each byte being 8 vertical pixels, LSB on top.
func (d *Dev) Write(pixels []byte) (int, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	if len(pixels) != len(d.buf.Pix) {
		return 0, fmt.Errorf("pcd8544: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.buf.Pix), len(pixels))
	}
	err := d.transact(func() error {
		if err := d.setMode(RowMajor); err != nil {
			return err
		}
		if err := d.seek(0, 0); err != nil {
			return err
		}
		for i, b := range pixels {
			d.buf.Pix[i] = b
			if err := d.data(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Clear turns every pixel off and sends the whole RAM again.
//
// All width*pages bytes are sent from the current address; the counters wrap
// around and end where they started, so no address command is needed unless
// the cursor was lost.
func (d *Dev) Clear() error {
	if err := d.ready(); err != nil {
		return err
	}
	d.buf.Clear()
	return d.transact(func() error {
		if err := d.ensureMode(); err != nil {
			return err
		}
		if !d.cur.synced() {
			if err := d.seek(0, 0); err != nil {
				return err
			}
		}
		for range d.buf.Pix {
			if err := d.data(0); err != nil {
				return err
			}
		}
		return nil
	})
}

// ready checks the preconditions shared by every drawing and configuration
// call.
func (d *Dev) ready() error {
	if d.ch == nil {
		return ErrNotInitialized
	}
	if d.halted {
		return ErrHalted
	}
	return nil
}

// transact runs fn with the chip enabled when the channel supports it.
func (d *Dev) transact(fn func() error) error {
	sel, ok := d.ch.(Selector)
	if ok {
		if err := sel.Select(true); err != nil {
			return d.fail(err)
		}
	}
	err := fn()
	if ok {
		if err2 := sel.Select(false); err2 != nil && err == nil {
			err = d.fail(err2)
		}
	}
	return err
}

// fail records a transport failure. The hardware state is unknown from now
// on.
func (d *Dev) fail(err error) error {
	d.cur.desync()
	return fmt.Errorf("pcd8544: transmit failed: %w", err)
}

func (d *Dev) command(c byte) error {
	if err := d.ch.Transmit(c, false); err != nil {
		return d.fail(err)
	}
	return nil
}

// data sends one RAM byte and mirrors the hardware auto-increment.
func (d *Dev) data(b byte) error {
	if err := d.ch.Transmit(b, true); err != nil {
		return d.fail(err)
	}
	d.cur.advance()
	return nil
}

// seek sends the X and Y address commands that differ from the cursor.
func (d *Dev) seek(x, page int) error {
	setX, setPage := d.cur.seek(x, page)
	if setX {
		if err := d.command(cmdSetX | byte(x)); err != nil {
			return err
		}
	}
	if setPage {
		if err := d.command(cmdSetY | byte(page)); err != nil {
			return err
		}
	}
	return nil
}

// setMode switches the addressing mode if it differs from the cursor's.
func (d *Dev) setMode(m Mode) error {
	if !d.cur.setMode(m) {
		return nil
	}
	return d.sendFunctionSet()
}

// ensureMode restores the addressing mode after the cursor was lost.
func (d *Dev) ensureMode() error {
	if d.cur.modeKnown {
		return nil
	}
	return d.sendFunctionSet()
}

var _ display.Drawer = &Dev{}
