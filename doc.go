// Package pcd8544 controls a PCD8544 monochrome LCD, as found on Nokia 5110
// and 3310 displays.
//
// The PCD8544 drives 48×84 pixels. Its RAM is organized in banks (pages) of 8
// rows: each byte holds 8 vertically stacked pixels, least significant bit on
// top. The driver keeps a mirror of the RAM and a model of the controller's
// address counters, so it only sends address commands when the counters would
// not already point at the next byte.
//
// # Display Characteristics
//
// - 1 bit per pixel, 84×48 on the common modules
// - Horizontal or vertical address auto-increment
// - Normal, inverse, blank and all segments on display modes
// - Software contrast through the operating voltage (Vop), bias and
// temperature coefficient
//
// # Hardware Connection
//
// The serial interface is write only:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK), or any GPIO when bit-banging
//	DIN         → SPI Data (MOSI), or any GPIO when bit-banging
//	DC          → GPIO (any available pin)
//	CE          → SPI Chip Select, any GPIO, or GND
//	RST         → Optional: GPIO for hardware reset
//	BL          → Backlight, not handled by this package
//
// # Basic Usage
//
//	package main
//
//	import (
//		"log"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/pcd8544"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		if _, err := host.Init(); err != nil {
//			log.Fatal(err)
//		}
//		p, err := spireg.Open("")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer p.Close()
//
//		dev, err := pcd8544.NewSPI(p, gpioreg.ByName("GPIO25"), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer dev.Halt()
//
//		// A 8×8 smiley, one byte per column.
//		smiley := pcd8544.Region{
//			X: 38, Y: 20, W: 8, H: 8,
//			Data:   []byte{0x3C, 0x42, 0x95, 0xA1, 0xA1, 0x95, 0x42, 0x3C},
//			Padded: true,
//			Opaque: true,
//		}
//		if err := dev.Blit(smiley, pcd8544.Columns); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Bit-banging
//
// When no SPI port is free, any four GPIO can be used:
//
//	dev, err := pcd8544.NewGPIO(&pcd8544.GPIOChannel{
//		Clk: gpioreg.ByName("GPIO11"),
//		Din: gpioreg.ByName("GPIO10"),
//		DC:  gpioreg.ByName("GPIO25"),
//		CE:  gpioreg.ByName("GPIO8"),
//	}, nil)
//
// # Using Hardware Reset Pin (Optional)
//
// With a RST pin the driver pulses it low for 10ms during initialization and
// knows the address counters are at the origin. Without one, the first Clear
// sets the address explicitly.
//
//	dev, _ := pcd8544.NewSPI(p, dcPin, &pcd8544.Opts{
//		W: 84, H: 48, Bias: 4, Vop: 0x3F,
//		RST: gpioreg.ByName("GPIO24"),
//	})
//
// # Drawing
//
// Blit places a bit packed region in either traversal. Columns consumes the
// source one column at a time and is the natural layout of fonts and sprites
// exported for this display; Rows consumes it one row at a time, as in XBM
// files. Both produce the same pixels for the same logical bitmap. Opaque
// regions replace what they cover, transparent ones only turn pixels on.
//
// DrawPixel changes a single pixel. Draw implements display.Drawer: the image
// is converted to 1 bit and only the smallest block of changed pages is sent.
// Write replaces the whole frame from a buffer in the layout of the ssd1306
// image1bit.VerticalLSB.
//
// # Terminal Emulation
//
// Package screen decodes the same byte stream as the controller and renders it
// in a terminal. A screen.Dev can be passed to New in place of a real Channel.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/Monochrome/Nokia5110.pdf
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package pcd8544
