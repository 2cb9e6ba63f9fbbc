package main

import (
	"bytes"
	"time"
)

// fakePort is an in-memory BytePort: reads pop from a queue, writes append
// to a log of flushes.
type fakePort struct {
	in      []byte
	writes  [][]byte
	readErr error
}

func (f *fakePort) ReadAvailable(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.in) == 0 {
		return 0, nil
	}
	n := copy(p, f.in)
	f.in = f.in[n:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	w := make([]byte, len(p))
	copy(w, p)
	f.writes = append(f.writes, w)
	return len(p), nil
}

func (f *fakePort) written() []byte {
	var all []byte
	for _, w := range f.writes {
		all = append(all, w...)
	}
	return all
}

// fakeLink is a scriptable WirelessLink.
type fakeLink struct {
	fakePort

	connectErr  error
	waitOK      bool
	up          bool
	authCode    string
	disconnects int
	connects    int

	discoverErr error
	found       func(ScanEntry)
	stopped     bool
	results     []ScanEntry
	services    map[HWAddr][]ServiceEntry

	lastAddr    HWAddr
	lastChannel uint8
	lastSec     SecurityPolicy
	lastRole    Role
}

func (f *fakeLink) Connect(addr HWAddr, channel uint8, sec SecurityPolicy, role Role) error {
	f.connects++
	f.lastAddr, f.lastChannel, f.lastSec, f.lastRole = addr, channel, sec, role
	return f.connectErr
}

func (f *fakeLink) WaitConnected(timeout time.Duration) bool {
	if f.waitOK {
		f.up = true
	}
	return f.waitOK
}

func (f *fakeLink) Connected() bool { return f.up }

func (f *fakeLink) Disconnect() {
	f.disconnects++
	f.up = false
}

func (f *fakeLink) SetAuthCode(code string) { f.authCode = code }

func (f *fakeLink) Discover(found func(ScanEntry)) error {
	if f.discoverErr != nil {
		return f.discoverErr
	}
	f.found = found
	return nil
}

func (f *fakeLink) StopDiscovery() { f.stopped = true }

func (f *fakeLink) ScanResults() []ScanEntry { return f.results }

func (f *fakeLink) Channels(addr HWAddr) []ServiceEntry { return f.services[addr] }

// memKV is the in-memory persistent store double.
type memKV struct {
	m        map[string][]byte
	puts     int
	corrupt  bool // flip a bit on every put, for verify-mismatch tests
	readOnly bool
}

func newMemKV() *memKV { return &memKV{m: make(map[string][]byte)} }

func (kv *memKV) IsKey(name string) bool {
	_, ok := kv.m[name]
	return ok
}

func (kv *memKV) GetBytes(name string) ([]byte, bool) {
	data, ok := kv.m[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (kv *memKV) PutBytes(name string, data []byte) error {
	if kv.readOnly {
		return ErrReadOnly
	}
	kv.puts++
	stored := make([]byte, len(data))
	copy(stored, data)
	if kv.corrupt && len(stored) > 0 {
		stored[0] ^= 0xff
	}
	kv.m[name] = stored
	return nil
}

func (kv *memKV) Clear() error {
	if kv.readOnly {
		return ErrReadOnly
	}
	kv.m = make(map[string][]byte)
	return nil
}

func (kv *memKV) Close() error { return nil }

func (kv *memKV) snapshot() map[string]string {
	out := make(map[string]string, len(kv.m))
	for k, v := range kv.m {
		out[k] = string(v)
	}
	return out
}

// fakeToggle replays a scripted sequence of levels, then stays inactive.
type fakeToggle struct {
	levels []bool
	i      int
}

func (f *fakeToggle) Level() bool {
	if f.i >= len(f.levels) {
		return false
	}
	v := f.levels[f.i]
	f.i++
	return v
}

func (f *fakeToggle) Close() error { return nil }

func newTestConsole() (*console, *bytes.Buffer) {
	var buf bytes.Buffer
	return newConsole(&buf), &buf
}
