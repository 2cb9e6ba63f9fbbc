package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrReadOnly is returned by mutating KV operations on a read-only store.
var ErrReadOnly = errors.New("kv store opened read-only")

// KV is a namespace-scoped key/value store for small binary blobs. It stands
// in for the microcontroller's non-volatile storage: every put is written
// through immediately.
type KV interface {
	IsKey(name string) bool
	GetBytes(name string) ([]byte, bool)
	PutBytes(name string, data []byte) error
	Clear() error
	Close() error
}

// fileKV persists one namespace as a JSON file under the state directory.
type fileKV struct {
	path     string
	readOnly bool
	entries  map[string][]byte
}

// OpenKV opens (creating if needed) the store for the given namespace.
func OpenKV(dir, namespace string, readOnly bool) (KV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	kv := &fileKV{
		path:     filepath.Join(dir, namespace+".json"),
		readOnly: readOnly,
		entries:  make(map[string][]byte),
	}
	data, err := os.ReadFile(kv.path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("read %s: %w", kv.path, err)
	}
	if err := json.Unmarshal(data, &kv.entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", kv.path, err)
	}
	return kv, nil
}

func (kv *fileKV) IsKey(name string) bool {
	_, ok := kv.entries[name]
	return ok
}

func (kv *fileKV) GetBytes(name string) ([]byte, bool) {
	data, ok := kv.entries[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (kv *fileKV) PutBytes(name string, data []byte) error {
	if kv.readOnly {
		return ErrReadOnly
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	kv.entries[name] = stored
	return kv.flush()
}

func (kv *fileKV) Clear() error {
	if kv.readOnly {
		return ErrReadOnly
	}
	kv.entries = make(map[string][]byte)
	return kv.flush()
}

func (kv *fileKV) Close() error { return nil }

func (kv *fileKV) flush() error {
	data, err := json.Marshal(kv.entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kv.path, err)
	}
	if err := os.WriteFile(kv.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", kv.path, err)
	}
	return nil
}
