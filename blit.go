package pcd8544

import "fmt"

// Traversal is the order in which a region's source bits are laid out and
// in which the display bytes are sent.
type Traversal uint8

const (
	// Columns consumes the source one column at a time, top to bottom, and
	// sends with vertical addressing.
	Columns Traversal = iota
	// Rows consumes the source one row at a time, left to right, and sends
	// with horizontal addressing.
	Rows
)

func (t Traversal) String() string {
	switch t {
	case Columns:
		return "Columns"
	case Rows:
		return "Rows"
	default:
		return "Traversal(?)"
	}
}

// mode returns the addressing mode that sends bytes in traversal order.
func (t Traversal) mode() Mode {
	if t == Columns {
		return ColumnMajor
	}
	return RowMajor
}

// Region is a bitmap to place on the display.
//
// Data is a bit stream, LSB first along the traversal direction:
//
//   - Columns: pixel (c, r) of the region is bit c*S+r, where S is H rounded
//     up to a multiple of 8 when Padded, H otherwise.
//   - Rows: pixel (c, r) is bit r*S+c, where S is W rounded up to a multiple
//     of 8 when Padded, W otherwise.
//
// Bit n is bit n%8 of Data[n/8].
type Region struct {
	X, Y int // Top-left corner on the display
	W, H int // Size in pixels

	Data []byte
	// Padded makes each column (or row) start on a byte boundary.
	Padded bool
	// Opaque replaces the covered pixels; otherwise only On source pixels
	// are drawn and Off pixels leave the display untouched.
	Opaque bool
}

// Size returns the number of source bytes needed for the region in the
// given traversal.
func (r *Region) Size(t Traversal) int {
	if !r.Padded {
		return (r.W*r.H + 7) / 8
	}
	if t == Columns {
		return r.W * ((r.H + 7) / 8)
	}
	return r.H * ((r.W + 7) / 8)
}

// source reads runs of vertically adjacent pixels out of a region's bit
// stream.
type source struct {
	data []byte
	col  int // Bit distance between horizontally adjacent pixels
	row  int // Bit distance between vertically adjacent pixels
}

func newSource(r *Region, t Traversal) source {
	s := source{data: r.Data}
	if t == Columns {
		s.col, s.row = r.H, 1
		if r.Padded {
			s.col = (r.H + 7) &^ 7
		}
	} else {
		s.col, s.row = 1, r.W
		if r.Padded {
			s.row = (r.W + 7) &^ 7
		}
	}
	return s
}

// run returns n (1 to 8) vertically stacked pixels starting at (c, r),
// topmost in the LSB.
func (s *source) run(c, r int, n uint) byte {
	pos := c*s.col + r*s.row
	if s.row == 1 {
		// Contiguous bits, spanning at most two source bytes.
		i, off := pos>>3, uint(pos&7)
		v := s.data[i] >> off
		if off+n > 8 {
			v |= s.data[i+1] << (8 - off)
		}
		return v & lowMask(n)
	}
	var v byte
	for k := uint(0); k < n; k++ {
		if s.data[pos>>3]&(1<<uint(pos&7)) != 0 {
			v |= 1 << k
		}
		pos += s.row
	}
	return v
}

// lowMask returns a byte with the n (1 to 8) low bits set.
func lowMask(n uint) byte {
	return 0xFF >> (8 - n)
}

// compose merges src into dst inside mask.
func compose(dst, src, mask byte, opaque bool) byte {
	if opaque {
		return dst&^mask | src&mask
	}
	return dst | src&mask
}

// Blit draws the region on the display.
//
// Every display byte covered by the region is read, merged with the source
// and sent exactly once, in traversal order. The addressing mode is switched
// at most once, before the first byte.
//
// All checks happen before anything is sent: a region that does not fit
// returns ErrOutOfBounds and leaves the display untouched. A region with no
// area is a no-op.
func (d *Dev) Blit(r Region, t Traversal) error {
	if err := d.ready(); err != nil {
		return err
	}
	if t != Columns && t != Rows {
		return fmt.Errorf("%w: %s", ErrInvalidMode, t)
	}
	if r.X < 0 || r.Y < 0 || r.W < 0 || r.H < 0 {
		return fmt.Errorf("%w: %dx%d at (%d, %d)", ErrOutOfBounds, r.W, r.H, r.X, r.Y)
	}
	if r.W == 0 || r.H == 0 {
		return nil
	}
	// Written without additions so that huge coordinates can't overflow.
	if r.W > d.rect.Dx()-r.X || r.H > d.rect.Dy()-r.Y {
		return fmt.Errorf("%w: %dx%d at (%d, %d)", ErrOutOfBounds, r.W, r.H, r.X, r.Y)
	}
	if n := r.Size(t); len(r.Data) < n {
		return fmt.Errorf("%w: %d bytes, want %d", ErrShortData, len(r.Data), n)
	}

	src := newSource(&r, t)
	first, last := r.Y>>3, (r.Y+r.H-1)>>3
	return d.transact(func() error {
		if err := d.setMode(t.mode()); err != nil {
			return err
		}
		if t == Columns {
			for c := 0; c < r.W; c++ {
				if err := d.seek(r.X+c, first); err != nil {
					return err
				}
				for page := first; page <= last; page++ {
					if err := d.blitByte(&src, &r, c, page); err != nil {
						return err
					}
				}
			}
			return nil
		}
		for page := first; page <= last; page++ {
			if err := d.seek(r.X, page); err != nil {
				return err
			}
			for c := 0; c < r.W; c++ {
				if err := d.blitByte(&src, &r, c, page); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// blitByte updates and sends the display byte of region column c in the
// given page. The cursor must already point at it.
func (d *Dev) blitByte(src *source, r *Region, c, page int) error {
	top := max(r.Y, page*8)
	bottom := min(r.Y+r.H, page*8+8)
	off := uint(top & 7)
	n := uint(bottom - top)

	mask := lowMask(n) << off
	bits := src.run(c, top-r.Y, n) << off

	x := r.X + c
	b := compose(d.buf.Page(x, page), bits, mask, r.Opaque)
	d.buf.SetPage(x, page, b)
	return d.data(b)
}

// DrawPixel turns a single pixel on or off and sends its byte.
//
// Unlike a 1x1 Blit, it keeps the current addressing mode. The buffer is
// updated before the byte is sent and keeps the new bit when the transmission
// fails.
func (d *Dev) DrawPixel(x, y int, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.buf.SetPixel(x, y, on); err != nil {
		return err
	}
	page := y >> 3
	return d.transact(func() error {
		if err := d.ensureMode(); err != nil {
			return err
		}
		if err := d.seek(x, page); err != nil {
			return err
		}
		return d.data(d.buf.Page(x, page))
	})
}
