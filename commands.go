package pcd8544

import "fmt"

// Instruction set, see datasheet table 1.
const (
	cmdFunctionSet = 0x20 // 0 0 1 0 0 PD V H
	fnPowerDown    = 0x04
	fnVertical     = 0x02
	fnExtended     = 0x01

	// H = 0
	cmdDisplayControl = 0x08 // 0 0 0 0 1 D 0 E
	cmdSetY           = 0x40 // 0 1 0 0 0 Y2 Y1 Y0
	cmdSetX           = 0x80 // 1 X6 .. X0

	// H = 1
	cmdTempCoeff = 0x04 // 0 0 0 0 0 1 TC1 TC0
	cmdBias      = 0x10 // 0 0 0 1 0 BS2 BS1 BS0
	cmdVop       = 0x80 // 1 Vop6 .. Vop0
)

// Register limits.
const (
	MaxBias = 7
	MaxVop  = 0x7F
	MaxTC   = 3
)

// DisplayMode is the display control configuration (D and E bits).
type DisplayMode byte

// Possible display modes.
const (
	DisplayBlank   DisplayMode = 0x00
	DisplayAllOn   DisplayMode = 0x01
	DisplayNormal  DisplayMode = 0x04
	DisplayInverse DisplayMode = 0x05
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayBlank:
		return "Blank"
	case DisplayAllOn:
		return "AllOn"
	case DisplayNormal:
		return "Normal"
	case DisplayInverse:
		return "Inverse"
	default:
		return fmt.Sprintf("DisplayMode(0x%02X)", byte(m))
	}
}

func (m DisplayMode) valid() bool {
	switch m {
	case DisplayBlank, DisplayAllOn, DisplayNormal, DisplayInverse:
		return true
	}
	return false
}

// SetExtended programs the extended instruction set registers: bias system
// (0-7), operating voltage Vop (0-0x7F) and temperature coefficient (0-3).
func (d *Dev) SetExtended(bias, vop, tc byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	if bias > MaxBias {
		return fmt.Errorf("%w: bias %d", ErrOutOfRange, bias)
	}
	if vop > MaxVop {
		return fmt.Errorf("%w: vop 0x%02X", ErrOutOfRange, vop)
	}
	if tc > MaxTC {
		return fmt.Errorf("%w: temperature coefficient %d", ErrOutOfRange, tc)
	}
	err := d.transact(func() error {
		for _, c := range []byte{
			d.functionSet(true),
			cmdVop | vop,
			cmdBias | bias,
			cmdTempCoeff | tc,
			d.functionSet(false),
		} {
			if err := d.command(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.bias, d.vop, d.tc = bias, vop, tc
	d.cur.modeKnown = true
	return nil
}

// SetContrast changes the operating voltage, keeping bias and temperature
// coefficient.
func (d *Dev) SetContrast(vop byte) error {
	return d.SetExtended(d.bias, vop, d.tc)
}

// SetDisplayMode selects blank, all segments on, normal or inverse video.
func (d *Dev) SetDisplayMode(m DisplayMode) error {
	if err := d.ready(); err != nil {
		return err
	}
	if !m.valid() {
		return fmt.Errorf("%w: display mode 0x%02X", ErrInvalidMode, byte(m))
	}
	if err := d.transact(func() error { return d.command(cmdDisplayControl | byte(m)) }); err != nil {
		return err
	}
	d.display = m
	return nil
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	if blackOnWhite {
		return d.SetDisplayMode(DisplayInverse)
	}
	return d.SetDisplayMode(DisplayNormal)
}

// Halt puts the controller in power-down mode. The display RAM is kept.
//
// Drawing and configuration calls fail with ErrHalted until Resume is called.
func (d *Dev) Halt() error {
	if d.ch == nil {
		return ErrNotInitialized
	}
	if d.halted {
		return nil
	}
	d.powerDown = true
	if err := d.transact(d.sendFunctionSet); err != nil {
		d.powerDown = false
		return err
	}
	d.halted = true
	return nil
}

// Resume leaves power-down mode.
func (d *Dev) Resume() error {
	if d.ch == nil {
		return ErrNotInitialized
	}
	if !d.halted {
		return nil
	}
	d.powerDown = false
	if err := d.transact(d.sendFunctionSet); err != nil {
		d.powerDown = true
		return err
	}
	d.halted = false
	return nil
}

// sendFunctionSet sends the basic function set command. Once sent, the
// hardware addressing mode matches the cursor.
func (d *Dev) sendFunctionSet() error {
	if err := d.command(d.functionSet(false)); err != nil {
		return err
	}
	d.cur.modeKnown = true
	return nil
}

// functionSet encodes the function set command for the current power state
// and cursor mode.
func (d *Dev) functionSet(extended bool) byte {
	c := byte(cmdFunctionSet)
	if d.powerDown {
		c |= fnPowerDown
	}
	if d.cur.mode == ColumnMajor {
		c |= fnVertical
	}
	if extended {
		c |= fnExtended
	}
	return c
}
