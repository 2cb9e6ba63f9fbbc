package main

import "strings"

// lineCap bounds the command line accumulator. A line that reaches the cap
// without a newline is dispatched as-is (truncation dispatch).
const lineCap = 64

// lineBuffer accumulates command-mode input until a full line is ready.
type lineBuffer struct {
	buf []byte
}

// Push feeds one input byte. Carriage returns are dropped silently and never
// counted toward the line. The returned slice is only valid until the next
// Push; the buffer is reset after every completed line.
func (l *lineBuffer) Push(c byte) (line []byte, complete bool) {
	switch c {
	case '\r':
		return nil, false
	case '\n':
		line = l.buf
		l.buf = l.buf[:0]
		return line, true
	}
	l.buf = append(l.buf, c)
	if len(l.buf) >= lineCap {
		line = l.buf
		l.buf = l.buf[:0]
		return line, true
	}
	return nil, false
}

// verbWindow is how many leading characters are case-folded for matching.
// "SETADDR " (keyword plus the mandatory space) is exactly this long, which
// is what makes the argument offsets below safe.
const verbWindow = 8

// commandSet interprets configuration-mode lines. It is the only mutator of
// the bridge-owned binding record.
type commandSet struct {
	con     *console
	store   *BindingStore
	binding *Binding
	disc    *discoverer
}

func newCommandSet(con *console, store *BindingStore, binding *Binding, disc *discoverer) *commandSet {
	return &commandSet{con: con, store: store, binding: binding, disc: disc}
}

// Execute dispatches one completed line. The verb table is checked in order;
// the first verb that prefixes the upper-cased leading window wins, so
// trailing junk after a verb does not prevent a match.
func (c *commandSet) Execute(line []byte) {
	if len(line) == 0 {
		return
	}
	window := line
	if len(window) > verbWindow {
		window = window[:verbWindow]
	}
	upper := strings.ToUpper(string(window))

	switch {
	case strings.HasPrefix(upper, "HELP"):
		c.help()
	case strings.HasPrefix(upper, "INFO"):
		c.info()
	case strings.HasPrefix(upper, "SCAN"):
		c.disc.Scan()
	case strings.HasPrefix(upper, "CLEAR"):
		c.clear()
	case strings.HasPrefix(upper, "SETADDR"):
		c.setAddr(argAfter(line, len("SETADDR ")))
	case strings.HasPrefix(upper, "SETPIN"):
		c.setPin(argAfter(line, len("SETPIN ")))
	default:
		c.con.Printf("unknown command: %q", string(line))
	}
}

// argAfter slices off the fixed-size keyword prefix. The keyword must appear
// in exact length and be followed by a space for the argument to come out
// sane; anything shorter yields an empty argument and fails validation.
func argAfter(line []byte, prefix int) string {
	if len(line) <= prefix {
		return ""
	}
	return string(line[prefix:])
}

func (c *commandSet) help() {
	c.con.Printf("commands:")
	c.con.Printf("  HELP             show this table")
	c.con.Printf("  INFO             show the stored remote binding")
	c.con.Printf("  SCAN             discover nearby devices")
	c.con.Printf("  CLEAR            reset the binding to defaults")
	c.con.Printf("  SETADDR <addr>   set the remote address (aa:bb:cc:dd:ee:ff)")
	c.con.Printf("  SETPIN <code>    set the pin code (up to %d digits)", codeCap-1)
}

func (c *commandSet) info() {
	c.con.Printf("remote address: %s", c.binding.Addr)
	c.con.Printf("pin code: %s", c.binding.CodeString())
}

func (c *commandSet) clear() {
	*c.binding = DefaultBinding()
	c.store.Save(*c.binding)
	c.con.Printf("binding reset to defaults")
}

// setAddr accepts an address only when its lower-cased text round-trips
// identically through the parser and the canonical renderer. That rejects
// every form whose canonical rendering differs from the input.
func (c *commandSet) setAddr(arg string) {
	lower := strings.ToLower(arg)
	addr, err := ParseHWAddr(lower)
	if err != nil || addr.String() != lower {
		c.con.Printf("invalid address %q", arg)
		return
	}
	c.binding.Addr = addr
	c.binding.Valid = true
	c.store.Save(*c.binding)
	c.con.Printf("remote address set to %s", addr)
}

// setPin validates the first codeCap-1 characters as decimal digits, then
// zero-fills the field and copies the argument truncated to capacity.
func (c *commandSet) setPin(arg string) {
	if len(arg) == 0 {
		c.con.Printf("invalid pin code: empty")
		return
	}
	for i := 0; i < len(arg) && i < codeCap-1; i++ {
		if arg[i] < '0' || arg[i] > '9' {
			c.con.Printf("invalid pin code %q: digits only", arg)
			return
		}
	}
	c.binding.Code = [codeCap]byte{}
	copy(c.binding.Code[:], arg)
	c.binding.Valid = true
	c.store.Save(*c.binding)
	c.con.Printf("pin code set to %s", c.binding.CodeString())
}
