package pcd8544

// Mode is the controller's address auto-increment direction.
type Mode uint8

const (
	// RowMajor increments X after each data byte, then the page (horizontal
	// addressing, V=0).
	RowMajor Mode = iota
	// ColumnMajor increments the page after each data byte, then X (vertical
	// addressing, V=1).
	ColumnMajor
)

func (m Mode) String() string {
	switch m {
	case RowMajor:
		return "RowMajor"
	case ColumnMajor:
		return "ColumnMajor"
	default:
		return "Mode(?)"
	}
}

// cursor mirrors the controller's X and Y (page) address counters so that
// address commands are only sent when needed.
//
// After a transport failure the hardware state is unknown; desync marks both
// the address and the mode as stale so the next operation sends them again.
type cursor struct {
	x, page   int
	mode      Mode
	modeKnown bool

	width, pages int
}

func newCursor(width, pages int) cursor {
	return cursor{width: width, pages: pages, modeKnown: true}
}

// seek moves the cursor and reports which address commands must be sent.
func (c *cursor) seek(x, page int) (setX, setPage bool) {
	if c.x != x {
		c.x = x
		setX = true
	}
	if c.page != page {
		c.page = page
		setPage = true
	}
	return setX, setPage
}

// advance applies the hardware auto-increment after one data byte.
func (c *cursor) advance() {
	if c.mode == ColumnMajor {
		if c.page++; c.page == c.pages {
			c.page = 0
			if c.x++; c.x == c.width {
				c.x = 0
			}
		}
		return
	}
	if c.x++; c.x == c.width {
		c.x = 0
		if c.page++; c.page == c.pages {
			c.page = 0
		}
	}
}

// setMode reports whether a function set command is needed to switch to m.
func (c *cursor) setMode(m Mode) bool {
	if c.modeKnown && c.mode == m {
		return false
	}
	c.mode = m
	c.modeKnown = true
	return true
}

// synced reports whether the address counters are known.
func (c *cursor) synced() bool {
	return c.x >= 0 && c.page >= 0
}

func (c *cursor) desync() {
	c.x, c.page = -1, -1
	c.modeKnown = false
}
