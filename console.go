package main

import (
	"fmt"
	"io"
)

// consoleTag prefixes every diagnostic line so it can be told apart from
// relayed traffic on the shared serial transport.
const consoleTag = "[btbridge] "

// console writes operator-facing diagnostic lines to the local transport.
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) *console {
	return &console{w: w}
}

// Printf writes one tagged, CRLF-terminated line. Write errors are swallowed:
// losing a diagnostic must never take the bridge down.
func (c *console) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, consoleTag+format+"\r\n", args...)
}
