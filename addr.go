package main

import (
	"fmt"
	"net"
)

// HWAddr is a 6-byte Bluetooth hardware address.
type HWAddr [6]byte

// BroadcastAddr is the all-ones address used as the compiled-in default
// binding target.
var BroadcastAddr = HWAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseHWAddr parses a textual hardware address. Only 6-byte addresses are
// accepted; longer EUI-64/InfiniBand forms allowed by net.ParseMAC are not.
func ParseHWAddr(s string) (HWAddr, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return HWAddr{}, err
	}
	if len(mac) != 6 {
		return HWAddr{}, fmt.Errorf("address %q: want 6 bytes, got %d", s, len(mac))
	}
	var a HWAddr
	copy(a[:], mac)
	return a, nil
}

// String renders the address in canonical lower-case colon form.
func (a HWAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}
