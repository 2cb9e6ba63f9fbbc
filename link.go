package main

import "time"

// Role says whether this end initiates or accepts the wireless connection.
type Role int

const (
	RoleController Role = iota
	RoleSubordinate
)

// SecurityPolicy is the protection demanded from the wireless link.
type SecurityPolicy struct {
	Encrypt      bool
	Authenticate bool
}

// securePolicy is the fixed policy used for every connection attempt.
var securePolicy = SecurityPolicy{Encrypt: true, Authenticate: true}

// ScanEntry is one device seen during discovery. Entries are transient:
// they live for the duration of a single scan and are discarded after
// rendering.
type ScanEntry struct {
	Addr HWAddr
	Name string
	RSSI int16
}

// ServiceEntry is one (channel, service-name) pair offered by a remote
// device. Channel 0 means the channel could not be determined.
type ServiceEntry struct {
	Channel uint8
	Name    string
}

// BytePort is the byte-stream surface shared by the local serial transport
// and the wireless link, so the relay can pump either direction the same
// way. ReadAvailable returns 0 when nothing is pending; it never blocks for
// more than the transport's short poll timeout.
type BytePort interface {
	ReadAvailable(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// WirelessLink is the capability surface of the external wireless stack.
// Link negotiation, pairing cryptography and the discovery machinery behind
// it are the collaborator's problem; the bridge only drives this interface.
type WirelessLink interface {
	BytePort

	// Connect starts a connection attempt to addr on the given channel.
	// A nil return does not guarantee the link is up yet; callers follow
	// up with WaitConnected.
	Connect(addr HWAddr, channel uint8, sec SecurityPolicy, role Role) error

	// WaitConnected blocks until the pending attempt completes or the
	// timeout expires, reporting whether the link is up.
	WaitConnected(timeout time.Duration) bool

	Connected() bool
	Disconnect()

	// SetAuthCode installs the code handed out when the remote side asks
	// for authentication during pairing.
	SetAuthCode(code string)

	// Discover starts asynchronous discovery, invoking found for each
	// device as it appears. It fails when discovery cannot be started.
	Discover(found func(ScanEntry)) error
	StopDiscovery()

	// ScanResults returns the devices accumulated since Discover.
	ScanResults() []ScanEntry

	// Channels lists the (channel, service-name) pairs a device offers.
	Channels(addr HWAddr) []ServiceEntry
}
