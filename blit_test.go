package pcd8544

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
)

// bitmap is a logical region content, indexed [row][column].
type bitmap [][]bool

func randomBitmap(rnd *rand.Rand, w, h int) bitmap {
	b := make(bitmap, h)
	for r := range b {
		b[r] = make([]bool, w)
		for c := range b[r] {
			b[r][c] = rnd.Intn(2) == 1
		}
	}
	return b
}

func filledBitmap(w, h int, on bool) bitmap {
	b := make(bitmap, h)
	for r := range b {
		b[r] = make([]bool, w)
		for c := range b[r] {
			b[r][c] = on
		}
	}
	return b
}

// pack encodes b as a region bit stream.
func pack(b bitmap, t Traversal, padded bool) []byte {
	h := len(b)
	w := len(b[0])
	reg := Region{W: w, H: h, Padded: padded}
	data := make([]byte, reg.Size(t))
	stride := h
	if t == Rows {
		stride = w
	}
	if padded {
		stride = (stride + 7) / 8 * 8
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if !b[r][c] {
				continue
			}
			n := c*stride + r
			if t == Rows {
				n = r*stride + c
			}
			data[n/8] |= 1 << uint(n%8)
		}
	}
	return data
}

func region(x, y int, b bitmap, t Traversal, padded, opaque bool) Region {
	return Region{
		X: x, Y: y, W: len(b[0]), H: len(b),
		Data:   pack(b, t, padded),
		Padded: padded,
		Opaque: opaque,
	}
}

func TestRegionSize(t *testing.T) {
	tests := []struct {
		w, h   int
		padded bool
		t      Traversal
		want   int
	}{
		{2, 5, true, Columns, 2},
		{2, 5, false, Columns, 2},
		{5, 2, true, Rows, 2},
		{8, 8, true, Columns, 8},
		{8, 8, false, Rows, 8},
		{3, 9, true, Columns, 6},
		{3, 9, true, Rows, 9},
		{3, 9, false, Columns, 4},
		{84, 48, true, Columns, 504},
		{84, 48, true, Rows, 528},
	}
	for _, tt := range tests {
		r := Region{W: tt.w, H: tt.h, Padded: tt.padded}
		if got := r.Size(tt.t); got != tt.want {
			t.Errorf("%dx%d padded=%v %s: Size() = %d, want %d", tt.w, tt.h, tt.padded, tt.t, got, tt.want)
		}
	}
}

func TestBlitColumns(t *testing.T) {
	tests := []struct {
		name   string
		padded bool
		want   []record
		x1     byte
	}{
		{"padded", true, seq(cmd(0x22), dat(0x11), cmd(0x81, 0x40), dat(0x02)), 0x02},
		{"unpadded", false, seq(cmd(0x22), dat(0x11), cmd(0x81, 0x40), dat(0x10)), 0x10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, f := newTestDev(t, nil)
			r := Region{W: 2, H: 5, Data: []byte{0x11, 0x22}, Padded: tt.padded, Opaque: true}
			if err := dev.Blit(r, Columns); err != nil {
				t.Fatal(err)
			}
			if got := dev.buf.Page(0, 0); got != 0x11 {
				t.Errorf("Page(0, 0) = 0x%02X, want 0x11", got)
			}
			if got := dev.buf.Page(1, 0); got != tt.x1 {
				t.Errorf("Page(1, 0) = 0x%02X, want 0x%02X", got, tt.x1)
			}
			if diff := diffOps(f.ops, tt.want); diff != "" {
				t.Errorf("Blit() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestBlitRowsAcrossPages(t *testing.T) {
	dev, f := newTestDev(t, nil)
	r := Region{X: 1, Y: 7, W: 3, H: 2, Data: []byte{0x05, 0x03}, Padded: true, Opaque: true}
	if err := dev.Blit(r, Rows); err != nil {
		t.Fatal(err)
	}
	want := seq(
		cmd(0x81), dat(0x80, 0x00, 0x80),
		cmd(0x81, 0x41), dat(0x01, 0x01, 0x00),
	)
	if diff := diffOps(f.ops, want); diff != "" {
		t.Errorf("Blit() difference (-got +want):\n%s", diff)
	}
}

// TestBlitRoundTrip checks, against an emulated controller, that a blit
// changes exactly the covered pixels in every traversal and layout.
func TestBlitRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	dev, s := newEmulatedDev(t, 84, 48)
	noise := make([]byte, 504)
	rnd.Read(noise)
	if _, err := dev.Write(noise); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 300; i++ {
		w, h := 1+rnd.Intn(84), 1+rnd.Intn(48)
		x, y := rnd.Intn(84-w+1), rnd.Intn(48-h+1)
		tr := Traversal(rnd.Intn(2))
		padded, opaque := rnd.Intn(2) == 1, rnd.Intn(2) == 1
		src := randomBitmap(rnd, w, h)
		before := append([]byte(nil), dev.buf.Pix...)

		if err := dev.Blit(region(x, y, src, tr, padded, opaque), tr); err != nil {
			t.Fatalf("#%d: Blit(%dx%d at (%d, %d), %s) = %v", i, w, h, x, y, tr, err)
		}
		for py := 0; py < 48; py++ {
			for px := 0; px < 84; px++ {
				old := before[(py/8)*84+px]&(1<<uint(py%8)) != 0
				want := old
				if px >= x && px < x+w && py >= y && py < y+h {
					on := src[py-y][px-x]
					if opaque {
						want = on
					} else {
						want = old || on
					}
				}
				if got := bool(dev.buf.BitAt(px, py)); got != want {
					t.Fatalf("#%d: %dx%d at (%d, %d) %s padded=%v opaque=%v: pixel (%d, %d) = %v, want %v",
						i, w, h, x, y, tr, padded, opaque, px, py, got, want)
				}
			}
		}
		checkInSync(t, dev, s)
	}
}

func TestBlitTraversalsAgree(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		w, h := 1+rnd.Intn(30), 1+rnd.Intn(30)
		x, y := rnd.Intn(84-w+1), rnd.Intn(48-h+1)
		src := randomBitmap(rnd, w, h)
		padded := rnd.Intn(2) == 1

		cols, _ := newTestDev(t, nil)
		rows, _ := newTestDev(t, nil)
		if err := cols.Blit(region(x, y, src, Columns, padded, true), Columns); err != nil {
			t.Fatal(err)
		}
		if err := rows.Blit(region(x, y, src, Rows, padded, true), Rows); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(cols.buf.Pix, rows.buf.Pix) {
			t.Fatalf("#%d: %dx%d at (%d, %d) padded=%v: Columns and Rows differ", i, w, h, x, y, padded)
		}
	}
}

func TestBlitTransparent(t *testing.T) {
	dev, f := newTestDev(t, nil)
	if err := dev.DrawPixel(3, 3, true); err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), dev.buf.Pix...)

	// Off source pixels leave the display untouched.
	off := filledBitmap(10, 10, false)
	f.ops = nil
	if err := dev.Blit(region(0, 0, off, Columns, true, false), Columns); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dev.buf.Pix, before) {
		t.Error("transparent all-off blit changed the buffer")
	}
	if len(f.ops) == 0 {
		t.Error("transparent blit sent nothing")
	}

	// Drawing the same On pixels twice is idempotent.
	on := filledBitmap(5, 12, true)
	r := region(2, 2, on, Rows, false, false)
	if err := dev.Blit(r, Rows); err != nil {
		t.Fatal(err)
	}
	once := append([]byte(nil), dev.buf.Pix...)
	if err := dev.Blit(r, Rows); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dev.buf.Pix, once) {
		t.Error("second transparent blit changed the buffer")
	}
	if on, _ := dev.Pixel(3, 3); !on {
		t.Error("pixel (3, 3) was cleared")
	}
}

func TestBlitOpaqueClears(t *testing.T) {
	dev, _ := newTestDev(t, nil)
	if err := dev.Blit(region(0, 0, filledBitmap(84, 48, true), Columns, true, true), Columns); err != nil {
		t.Fatal(err)
	}
	if err := dev.Blit(region(10, 3, filledBitmap(4, 3, false), Rows, false, true), Rows); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 84; x++ {
			want := !(x >= 10 && x < 14 && y >= 3 && y < 6)
			if got, _ := dev.Pixel(x, y); got != want {
				t.Fatalf("Pixel(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestBlitBounds(t *testing.T) {
	tests := []struct {
		name string
		r    Region
		want error
	}{
		{"exact fit", Region{X: 80, Y: 40, W: 4, H: 8}, nil},
		{"one column too wide", Region{X: 81, Y: 40, W: 4, H: 8}, ErrOutOfBounds},
		{"one row too high", Region{X: 80, Y: 41, W: 4, H: 8}, ErrOutOfBounds},
		{"negative X", Region{X: -1, Y: 0, W: 4, H: 8}, ErrOutOfBounds},
		{"negative Y", Region{X: 0, Y: -1, W: 4, H: 8}, ErrOutOfBounds},
		{"negative W", Region{X: 0, Y: 0, W: -4, H: 8}, ErrOutOfBounds},
		{"zero width", Region{X: 1000, Y: 0, W: 0, H: 8}, nil},
		{"zero height", Region{X: 0, Y: 1000, W: 4, H: 0}, nil},
		{"huge X", Region{X: math.MaxInt, Y: 0, W: 1, H: 1}, ErrOutOfBounds},
		{"huge Y", Region{X: 0, Y: math.MaxInt, W: 1, H: 1}, ErrOutOfBounds},
		{"huge W", Region{X: 1, Y: 0, W: math.MaxInt, H: 1}, ErrOutOfBounds},
		{"huge H", Region{X: 0, Y: 1, W: 1, H: math.MaxInt}, ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, f := newTestDev(t, nil)
			tt.r.Data = []byte{0xFF}
			if tt.want == nil && tt.r.W > 0 && tt.r.H > 0 {
				tt.r.Data = bytes.Repeat([]byte{0xFF}, tt.r.W*tt.r.H)
			}
			tt.r.Opaque = true
			err := dev.Blit(tt.r, Columns)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Blit() = %v, want %v", err, tt.want)
			}
			if err != nil || tt.r.W == 0 || tt.r.H == 0 {
				if len(f.ops) != 0 {
					t.Errorf("Blit() sent %d bytes", len(f.ops))
				}
				if !bytes.Equal(dev.buf.Pix, make([]byte, 504)) {
					t.Error("Blit() changed the buffer")
				}
			}
		})
	}
}

func TestBlitShortData(t *testing.T) {
	dev, f := newTestDev(t, nil)
	r := Region{W: 8, H: 8, Data: make([]byte, 7), Padded: true}
	if err := dev.Blit(r, Columns); !errors.Is(err, ErrShortData) {
		t.Errorf("Blit() = %v, want ErrShortData", err)
	}
	r = Region{W: 9, H: 8, Data: make([]byte, 9)}
	if err := dev.Blit(r, Rows); err != nil {
		t.Errorf("Blit() unpadded 9x8 with 9 bytes = %v", err)
	}
	r.Padded = true
	if err := dev.Blit(r, Rows); !errors.Is(err, ErrShortData) {
		t.Errorf("Blit() padded 9x8 with 9 bytes = %v, want ErrShortData", err)
	}
	f.ops = nil
	if err := dev.Blit(Region{W: 1, H: 1}, Columns); !errors.Is(err, ErrShortData) {
		t.Errorf("Blit() without data = %v, want ErrShortData", err)
	}
	if len(f.ops) != 0 {
		t.Errorf("Blit() sent %d bytes", len(f.ops))
	}
}

func TestBlitInvalidTraversal(t *testing.T) {
	dev, f := newTestDev(t, nil)
	if err := dev.Blit(Region{W: 1, H: 1, Data: []byte{1}}, Traversal(7)); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Blit() = %v, want ErrInvalidMode", err)
	}
	if len(f.ops) != 0 {
		t.Errorf("Blit() sent %d bytes", len(f.ops))
	}
	if s := Traversal(7).String(); s != "Traversal(?)" {
		t.Errorf("String() = %q", s)
	}
}

func countFunctionSets(ops []record) int {
	n := 0
	for _, r := range ops {
		if !r.data && r.b&0xF8 == cmdFunctionSet {
			n++
		}
	}
	return n
}

func TestBlitModeSwitch(t *testing.T) {
	dev, f := newTestDev(t, nil)
	r := Region{W: 2, H: 8, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Padded: true}
	for i := 0; i < 2; i++ {
		if err := dev.Blit(r, Columns); err != nil {
			t.Fatal(err)
		}
	}
	if n := countFunctionSets(f.ops); n != 1 {
		t.Errorf("%d function set commands for two column blits, want 1", n)
	}
	if f.ops[0] != (record{b: 0x22}) {
		t.Errorf("first byte = %+v, want vertical addressing", f.ops[0])
	}

	f.ops = nil
	if err := dev.Blit(r, Rows); err != nil {
		t.Fatal(err)
	}
	if f.ops[0] != (record{b: 0x20}) || countFunctionSets(f.ops) != 1 {
		t.Errorf("row blit after a column blit: %+v", f.ops)
	}
}

func TestBlitSequentialRowsNeedNoAddress(t *testing.T) {
	dev, f := newTestDev(t, nil)
	band := filledBitmap(84, 8, true)
	if err := dev.Blit(region(0, 0, band, Rows, true, true), Rows); err != nil {
		t.Fatal(err)
	}
	// The counters wrapped to the start of page 1.
	if err := dev.Blit(region(0, 8, band, Rows, true, true), Rows); err != nil {
		t.Fatal(err)
	}
	if c := f.commands(); len(c) != 0 {
		t.Errorf("commands % X, want none", c)
	}
	if len(f.ops) != 168 {
		t.Errorf("%d bytes sent, want 168", len(f.ops))
	}
}

func TestDrawPixel(t *testing.T) {
	dev, s := newEmulatedDev(t, 84, 48)
	for _, p := range [][2]int{{0, 0}, {83, 47}, {40, 20}, {41, 20}, {40, 21}} {
		if err := dev.DrawPixel(p[0], p[1], true); err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.DrawPixel(41, 20, false); err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		x, y int
		want bool
	}{
		{0, 0, true}, {83, 47, true}, {40, 20, true}, {41, 20, false}, {40, 21, true}, {1, 0, false},
	} {
		if got, _ := dev.Pixel(tt.x, tt.y); got != tt.want {
			t.Errorf("Pixel(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	checkInSync(t, dev, s)
}

func TestDrawPixelAddressing(t *testing.T) {
	dev, f := newTestDev(t, nil)
	if err := dev.DrawPixel(5, 10, true); err != nil {
		t.Fatal(err)
	}
	// The cursor auto-incremented to the next column.
	if err := dev.DrawPixel(6, 10, true); err != nil {
		t.Fatal(err)
	}
	// Same page: only X is sent again.
	if err := dev.DrawPixel(5, 11, true); err != nil {
		t.Fatal(err)
	}
	want := seq(
		cmd(0x85, 0x41), dat(0x04),
		dat(0x04),
		cmd(0x85), dat(0x0C),
	)
	if diff := diffOps(f.ops, want); diff != "" {
		t.Errorf("DrawPixel() difference (-got +want):\n%s", diff)
	}
}

func TestDrawPixelKeepsMode(t *testing.T) {
	dev, f := newTestDev(t, nil)
	if err := dev.Blit(Region{W: 1, H: 8, Data: []byte{0}, Opaque: true}, Columns); err != nil {
		t.Fatal(err)
	}
	f.ops = nil
	if err := dev.DrawPixel(20, 20, true); err != nil {
		t.Fatal(err)
	}
	if n := countFunctionSets(f.ops); n != 0 {
		t.Errorf("DrawPixel() sent %d function set commands", n)
	}
	if dev.cur.mode != ColumnMajor {
		t.Errorf("mode = %s, want ColumnMajor", dev.cur.mode)
	}
}

func TestDrawPixelOutOfRange(t *testing.T) {
	dev, f := newTestDev(t, nil)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {84, 0}, {0, 48}} {
		if err := dev.DrawPixel(p[0], p[1], true); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("DrawPixel(%d, %d) = %v, want ErrOutOfRange", p[0], p[1], err)
		}
	}
	if len(f.ops) != 0 {
		t.Errorf("DrawPixel() sent %d bytes", len(f.ops))
	}
	if _, err := dev.Pixel(84, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Pixel(84, 0) = %v, want ErrOutOfRange", err)
	}
}

func TestTransportFailure(t *testing.T) {
	dev, f := newTestDev(t, nil)
	f.failAt = 3
	r := Region{W: 2, H: 16, Data: []byte{0xFF, 0xFF, 0xFF, 0xFF}, Padded: true, Opaque: true}
	err := dev.Blit(r, Columns)
	if !errors.Is(err, errFake) {
		t.Fatalf("Blit() = %v, want the transport error", err)
	}
	if dev.cur.synced() || dev.cur.modeKnown {
		t.Error("cursor should be desynced after a transport failure")
	}

	// Everything is sent again on the next operation.
	f.ops, f.failAt = nil, -1
	if err := dev.DrawPixel(0, 0, true); err != nil {
		t.Fatal(err)
	}
	want := seq(cmd(0x22, 0x80, 0x40), dat(0xFF))
	if diff := diffOps(f.ops, want); diff != "" {
		t.Errorf("DrawPixel() difference (-got +want):\n%s", diff)
	}
}

func TestDrawPixelFailureKeepsBuffer(t *testing.T) {
	dev, f := newTestDev(t, nil)
	f.ops, f.failAt = nil, 0
	if err := dev.DrawPixel(3, 9, true); !errors.Is(err, errFake) {
		t.Fatalf("DrawPixel() = %v, want the transport error", err)
	}
	if on, _ := dev.Pixel(3, 9); !on {
		t.Error("Pixel(3, 9) = false after a failed DrawPixel, want true")
	}
}
