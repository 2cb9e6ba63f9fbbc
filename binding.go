package main

import "bytes"

const (
	bindingNamespace = "binding"
	keyRemoteAddr    = "remote_addr"
	keyRemoteCode    = "remote_code"

	// codeCap bounds the auth code: up to 8 printable ASCII digits,
	// NUL-padded, mirroring the on-flash layout of the original firmware.
	codeCap = 8

	defaultCode = "0000"
)

// Binding identifies the one remote device the bridge will connect to.
// A record is only acted upon when Valid is true.
type Binding struct {
	Valid bool
	Addr  HWAddr
	Code  [codeCap]byte
}

// CodeString returns the auth code up to the first NUL byte.
func (b Binding) CodeString() string {
	if i := bytes.IndexByte(b.Code[:], 0); i >= 0 {
		return string(b.Code[:i])
	}
	return string(b.Code[:])
}

// DefaultBinding returns the compiled-in fallback: broadcast address with a
// fixed 4-digit code.
func DefaultBinding() Binding {
	b := Binding{Valid: true, Addr: BroadcastAddr}
	copy(b.Code[:], defaultCode)
	return b
}

// BindingStore owns the durable copy of the binding record.
type BindingStore struct {
	kv  KV
	con *console
}

func NewBindingStore(kv KV, con *console) *BindingStore {
	return &BindingStore{kv: kv, con: con}
}

// Load reads the binding from the persistent store. If either key is absent
// or malformed the partial read is abandoned and an invalid record returned;
// the caller falls back to defaults.
func (s *BindingStore) Load() Binding {
	var b Binding
	if !s.kv.IsKey(keyRemoteAddr) {
		return b
	}
	raw, ok := s.kv.GetBytes(keyRemoteAddr)
	if !ok || len(raw) != len(b.Addr) {
		return Binding{}
	}
	copy(b.Addr[:], raw)
	if !s.kv.IsKey(keyRemoteCode) {
		return Binding{}
	}
	code, ok := s.kv.GetBytes(keyRemoteCode)
	if !ok || len(code) == 0 || len(code) > codeCap {
		return Binding{}
	}
	copy(b.Code[:], code)
	b.Valid = true
	return b
}

// Save writes the binding through to the persistent store. Invalid records
// are never persisted. The namespace is erased first, both fields written,
// then read back and compared byte-for-byte; a mismatch is reported as a
// non-fatal integrity warning with no retry and no rollback.
func (s *BindingStore) Save(b Binding) {
	if !b.Valid {
		return
	}
	if err := s.kv.Clear(); err != nil {
		s.con.Printf("warning: clear binding storage: %v", err)
	}
	if err := s.kv.PutBytes(keyRemoteAddr, b.Addr[:]); err != nil {
		s.con.Printf("warning: store remote address: %v", err)
	}
	if err := s.kv.PutBytes(keyRemoteCode, b.Code[:]); err != nil {
		s.con.Printf("warning: store pin code: %v", err)
	}
	s.verify(b)
}

// verify is the only corruption detector: best-effort, report-only.
func (s *BindingStore) verify(b Binding) {
	addr, ok := s.kv.GetBytes(keyRemoteAddr)
	if !ok || !bytes.Equal(addr, b.Addr[:]) {
		s.con.Printf("warning: stored address does not match written value")
		return
	}
	code, ok := s.kv.GetBytes(keyRemoteCode)
	if !ok || !bytes.Equal(code, b.Code[:]) {
		s.con.Printf("warning: stored pin code does not match written value")
	}
}
