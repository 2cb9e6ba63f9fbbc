package main

// relayBufSize is the per-direction batching buffer. A full buffer forces an
// immediate flush before draining continues, so throughput is bounded by the
// flush-write speed of the destination transport. Do not replace this with
// unbounded buffering.
const relayBufSize = 256

// relay moves bytes bidirectionally between the local transport and the
// wireless link while the bridge is in link mode. No framing, no
// backpressure beyond the fixed buffers.
type relay struct {
	local BytePort
	link  BytePort

	fromLink  [relayBufSize]byte
	fromLocal [relayBufSize]byte
}

func newRelay(local, link BytePort) *relay {
	return &relay{local: local, link: link}
}

// Cycle performs one relay pass: link→local, then local→link.
func (r *relay) Cycle() {
	pump(r.link, r.local, r.fromLink[:])
	pump(r.local, r.link, r.fromLocal[:])
}

// pump drains everything currently available from src into buf, flushing to
// dst when the buffer fills and once more at end of drain.
func pump(src, dst BytePort, buf []byte) {
	fill := 0
	for {
		n, err := src.ReadAvailable(buf[fill:])
		fill += n
		if fill == len(buf) {
			flush(dst, buf[:fill])
			fill = 0
		}
		if err != nil || n == 0 {
			break
		}
	}
	if fill > 0 {
		flush(dst, buf[:fill])
	}
}

// flush writes the batch out in full. Short writes are retried; errors drop
// the remainder, matching the lossy best-effort nature of the bridge.
func flush(dst BytePort, p []byte) {
	for len(p) > 0 {
		n, err := dst.Write(p)
		if err != nil || n == 0 {
			return
		}
		p = p[n:]
	}
}
