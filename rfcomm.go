package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// BT_SECURITY socket option and security levels from the kernel's
// <bluetooth/bluetooth.h>; golang.org/x/sys/unix does not export these.
const (
	BT_SECURITY        = 4
	BT_SECURITY_MEDIUM = 2
	BT_SECURITY_HIGH   = 3
)

// rfcommConn is a non-blocking RFCOMM socket to one remote device. The
// wireless collaborator owns exactly one of these at a time.
type rfcommConn struct {
	fd      int
	up      bool
	pending bool
}

// dialRFCOMM starts a connection attempt to addr on the given channel. The
// socket is non-blocking: the attempt usually returns pending and completes
// (or fails) inside waitConnected.
func dialRFCOMM(addr HWAddr, channel uint8, sec SecurityPolicy) (*rfcommConn, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}
	if sec.Encrypt || sec.Authenticate {
		// struct bt_security{level, key_size}; HIGH demands an
		// authenticated and encrypted link.
		level := byte(BT_SECURITY_MEDIUM)
		if sec.Authenticate {
			level = BT_SECURITY_HIGH
		}
		if err := unix.SetsockoptString(fd, unix.SOL_BLUETOOTH, BT_SECURITY, string([]byte{level, 0})); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set link security: %w", err)
		}
	}

	sa := &unix.SockaddrRFCOMM{Channel: channel}
	// bdaddr_t is little-endian on the wire.
	for i := 0; i < len(addr); i++ {
		sa.Addr[i] = addr[len(addr)-1-i]
	}

	c := &rfcommConn{fd: fd}
	switch err := unix.Connect(fd, sa); {
	case err == nil:
		c.up = true
	case errors.Is(err, unix.EINPROGRESS):
		c.pending = true
	default:
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm connect %s channel %d: %w", addr, channel, err)
	}
	return c, nil
}

// waitConnected polls the pending attempt until it resolves or the timeout
// expires. Pairing delays (the kernel consulting the registered agent) are
// covered by the same wait.
func (c *rfcommConn) waitConnected(timeout time.Duration) bool {
	if c.up {
		return true
	}
	if !c.pending {
		return false
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, 100)
		if err != nil && !errors.Is(err, unix.EINTR) {
			break
		}
		if n == 0 {
			continue
		}
		soerr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil || soerr != 0 {
			break
		}
		c.pending = false
		c.up = true
		return true
	}
	c.pending = false
	return false
}

func (c *rfcommConn) connected() bool { return c.up }

// ReadAvailable drains pending bytes without blocking. A closed peer marks
// the link down.
func (c *rfcommConn) ReadAvailable(p []byte) (int, error) {
	if !c.up {
		return 0, io.EOF
	}
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		c.up = false
		return 0, err
	}
	if n == 0 {
		c.up = false
		return 0, io.EOF
	}
	return n, nil
}

func (c *rfcommConn) Write(p []byte) (int, error) {
	if !c.up {
		return 0, io.EOF
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
			continue
		}
		if err != nil && (errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)) {
			time.Sleep(time.Millisecond)
			continue
		}
		c.up = false
		return written, err
	}
	return written, nil
}

// close is idempotent.
func (c *rfcommConn) close() {
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
	c.up = false
	c.pending = false
}
