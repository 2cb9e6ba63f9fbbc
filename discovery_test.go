package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDisconnectsBeforeDiscovery(t *testing.T) {
	link := &fakeLink{up: true}
	var out strings.Builder
	d := newQuietDiscoverer(link, newConsole(&out))

	d.Scan()

	assert.Equal(t, 1, link.disconnects)
	assert.True(t, link.stopped)
}

func TestScanStartFailureReportsAndAborts(t *testing.T) {
	link := &fakeLink{discoverErr: errors.New("radio busy")}
	var out strings.Builder
	d := newQuietDiscoverer(link, newConsole(&out))

	d.Scan()

	assert.Contains(t, out.String(), "scan failed")
	assert.False(t, link.stopped, "no scan to stop after a failed start")
	assert.NotContains(t, out.String(), "scan complete")
}

func TestScanRendersFoundDevicesLive(t *testing.T) {
	link := &fakeLink{}
	var out strings.Builder
	d := newQuietDiscoverer(link, newConsole(&out))

	// Simulate the async found callback firing inside the scan window.
	d.sleep = func(time.Duration) {
		if link.found != nil {
			link.found(ScanEntry{Addr: HWAddr{1, 2, 3, 4, 5, 6}, Name: "probe", RSSI: -40})
			link.found = nil
		}
	}

	d.Scan()
	assert.Contains(t, out.String(), "found 01:02:03:04:05:06")
	assert.Contains(t, out.String(), "probe")
}

func TestScanEnumeratesResultsWithServices(t *testing.T) {
	addr := HWAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	link := &fakeLink{
		results: []ScanEntry{{Addr: addr, Name: "printer", RSSI: -60}},
		services: map[HWAddr][]ServiceEntry{
			addr: {
				{Channel: 2, Name: "Serial Port"},
				{Channel: 0, Name: "Object Push"},
			},
		},
	}
	var out strings.Builder
	d := newQuietDiscoverer(link, newConsole(&out))

	d.Scan()

	s := out.String()
	assert.Contains(t, s, "aa:bb:cc:dd:ee:ff")
	assert.Contains(t, s, "printer")
	assert.Contains(t, s, "channel 2: Serial Port")
	assert.Contains(t, s, "channel ?: Object Push")
	assert.Contains(t, s, "scan complete: 1 device(s)")
}

func TestScanWaitsWindowThenSettle(t *testing.T) {
	link := &fakeLink{}
	var out strings.Builder
	d := newDiscoverer(link, newConsole(&out))

	var slept []time.Duration
	d.sleep = func(dur time.Duration) { slept = append(slept, dur) }

	d.Scan()

	require.Equal(t, []time.Duration{scanWindow, settleTime}, slept)
	assert.True(t, link.stopped)
}
