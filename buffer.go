package pcd8544

import (
	"fmt"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// pixelBuffer mirrors the display RAM. The PCD8544 uses the same page layout
// as the SSD1306:
//
//	Pix[page*Stride + x] bit i = pixel (x, page*8 + i)
type pixelBuffer struct {
	*image1bit.VerticalLSB
}

func newPixelBuffer(r image.Rectangle) pixelBuffer {
	return pixelBuffer{image1bit.NewVerticalLSB(r)}
}

// Pages returns the number of 8 pixel high bands.
func (b pixelBuffer) Pages() int {
	return b.Rect.Dy() / 8
}

// Get returns the state of the pixel at (x, y).
func (b pixelBuffer) Get(x, y int) (bool, error) {
	if !(image.Point{X: x, Y: y}.In(b.Rect)) {
		return false, fmt.Errorf("%w: pixel (%d, %d)", ErrOutOfRange, x, y)
	}
	return bool(b.BitAt(x, y)), nil
}

// SetPixel changes one bit of the byte owning (x, y).
func (b pixelBuffer) SetPixel(x, y int, on bool) error {
	if !(image.Point{X: x, Y: y}.In(b.Rect)) {
		return fmt.Errorf("%w: pixel (%d, %d)", ErrOutOfRange, x, y)
	}
	b.SetBit(x, y, image1bit.Bit(on))
	return nil
}

// Page returns the 8 pixels of column x in the given page, top one in the LSB.
func (b pixelBuffer) Page(x, page int) byte {
	return b.Pix[page*b.Stride+x]
}

func (b pixelBuffer) SetPage(x, page int, v byte) {
	b.Pix[page*b.Stride+x] = v
}

// Clear turns every pixel off.
func (b pixelBuffer) Clear() {
	clear(b.Pix)
}
