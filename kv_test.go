package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVPutGet(t *testing.T) {
	kv, err := OpenKV(t.TempDir(), "binding", false)
	require.NoError(t, err)

	assert.False(t, kv.IsKey("k"))
	_, ok := kv.GetBytes("k")
	assert.False(t, ok)

	require.NoError(t, kv.PutBytes("k", []byte{1, 2, 3}))
	assert.True(t, kv.IsKey("k"))
	got, ok := kv.GetBytes("k")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestFileKVPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	kv, err := OpenKV(dir, "binding", false)
	require.NoError(t, err)
	require.NoError(t, kv.PutBytes("addr", []byte{0xff, 0xee}))
	require.NoError(t, kv.Close())

	kv2, err := OpenKV(dir, "binding", false)
	require.NoError(t, err)
	got, ok := kv2.GetBytes("addr")
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xee}, got)
}

func TestFileKVClear(t *testing.T) {
	dir := t.TempDir()
	kv, err := OpenKV(dir, "binding", false)
	require.NoError(t, err)

	require.NoError(t, kv.PutBytes("a", []byte{1}))
	require.NoError(t, kv.PutBytes("b", []byte{2}))
	require.NoError(t, kv.Clear())

	assert.False(t, kv.IsKey("a"))
	assert.False(t, kv.IsKey("b"))

	// The erase is durable, not just in-memory.
	kv2, err := OpenKV(dir, "binding", false)
	require.NoError(t, err)
	assert.False(t, kv2.IsKey("a"))
}

func TestFileKVNamespacesAreIsolated(t *testing.T) {
	dir := t.TempDir()

	a, err := OpenKV(dir, "one", false)
	require.NoError(t, err)
	require.NoError(t, a.PutBytes("k", []byte("alpha")))

	b, err := OpenKV(dir, "two", false)
	require.NoError(t, err)
	assert.False(t, b.IsKey("k"))
}

func TestFileKVReadOnly(t *testing.T) {
	dir := t.TempDir()
	rw, err := OpenKV(dir, "binding", false)
	require.NoError(t, err)
	require.NoError(t, rw.PutBytes("k", []byte{9}))

	ro, err := OpenKV(dir, "binding", true)
	require.NoError(t, err)

	assert.ErrorIs(t, ro.PutBytes("k", []byte{1}), ErrReadOnly)
	assert.ErrorIs(t, ro.Clear(), ErrReadOnly)
	got, ok := ro.GetBytes("k")
	require.True(t, ok)
	assert.Equal(t, []byte{9}, got)
}

func TestFileKVGetReturnsCopy(t *testing.T) {
	kv, err := OpenKV(t.TempDir(), "binding", false)
	require.NoError(t, err)
	require.NoError(t, kv.PutBytes("k", []byte{1, 2}))

	got, _ := kv.GetBytes("k")
	got[0] = 0xff

	again, _ := kv.GetBytes("k")
	assert.Equal(t, []byte{1, 2}, again)
}
