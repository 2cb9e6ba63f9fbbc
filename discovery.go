package main

import "time"

const (
	// scanWindow is how long discovery runs before being stopped.
	scanWindow = 10 * time.Second
	// settleTime allows outstanding service-list queries to finish after
	// discovery stops, before results are enumerated.
	settleTime = 5 * time.Second
)

// discoverer drives a bounded discovery scan and renders what it finds.
// A scan monopolizes the control loop for its whole window; there is no
// cancellation once the delays have started.
type discoverer struct {
	link WirelessLink
	con  *console

	window time.Duration
	settle time.Duration
	sleep  func(time.Duration)
}

func newDiscoverer(link WirelessLink, con *console) *discoverer {
	return &discoverer{
		link:   link,
		con:    con,
		window: scanWindow,
		settle: settleTime,
		sleep:  time.Sleep,
	}
}

// Scan tears down any active link first (discovery and an active connection
// are mutually exclusive on the radio), runs discovery for the fixed window,
// then enumerates the accumulated results with their service lists.
func (d *discoverer) Scan() {
	d.link.Disconnect()

	err := d.link.Discover(func(e ScanEntry) {
		d.con.Printf("found %s  %s  rssi %d", e.Addr, e.Name, e.RSSI)
	})
	if err != nil {
		d.con.Printf("scan failed: %v", err)
		return
	}
	d.con.Printf("scanning for %s ...", d.window)
	d.sleep(d.window)
	d.link.StopDiscovery()
	d.sleep(d.settle)

	results := d.link.ScanResults()
	for _, e := range results {
		d.con.Printf("%s  %s  rssi %d", e.Addr, e.Name, e.RSSI)
		for _, svc := range d.link.Channels(e.Addr) {
			if svc.Channel == 0 {
				d.con.Printf("  channel ?: %s", svc.Name)
				continue
			}
			d.con.Printf("  channel %d: %s", svc.Channel, svc.Name)
		}
	}
	d.con.Printf("scan complete: %d device(s)", len(results))
}
