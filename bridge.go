package main

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// deviceMode selects between bridging bytes and accepting commands.
// Exactly one is active; transitions are edge-triggered by the toggle input,
// never time-based.
type deviceMode int

const (
	modeLink deviceMode = iota
	modeConfig
)

func (m deviceMode) String() string {
	if m == modeConfig {
		return "configuration"
	}
	return "link"
}

const (
	// connectTimeout bounds the wait for an asynchronous connection to
	// complete after each attempt.
	connectTimeout = 10 * time.Second
	// escapeWindow is the pause between connect attempts during which the
	// operator can toggle into configuration mode.
	escapeWindow = time.Second
	// pollStep is the control loop granularity.
	pollStep = 10 * time.Millisecond

	// rfcommChannel is the channel used for every connection; SPP lives
	// on channel 1 on virtually every serial-profile device.
	defaultChannel uint8 = 1
)

// errRestart recovers from steady-state link loss: the run loop tears the
// session down and re-runs the boot sequence from scratch. Coarse on
// purpose; in-flight relay data is lost.
var errRestart = errors.New("restart requested")

// Bridge is the top-level controller. It exclusively owns the binding
// record, the line buffer and the relay buffers; everything runs on one
// cooperative loop, so nothing here needs locking.
type Bridge struct {
	con    *console
	log    *slog.Logger
	local  BytePort
	link   WirelessLink
	store  *BindingStore
	toggle ToggleInput

	channel uint8
	binding Binding
	mode    deviceMode

	lastLevel bool
	linkWasUp bool

	line  lineBuffer
	cmds  *commandSet
	relay *relay
	disc  *discoverer

	sleep func(time.Duration)
}

func NewBridge(con *console, log *slog.Logger, local BytePort, link WirelessLink, store *BindingStore, toggle ToggleInput, channel uint8) *Bridge {
	if channel == 0 {
		channel = defaultChannel
	}
	b := &Bridge{
		con:     con,
		log:     log,
		local:   local,
		link:    link,
		store:   store,
		toggle:  toggle,
		channel: channel,
		sleep:   time.Sleep,
	}
	b.disc = newDiscoverer(link, con)
	b.cmds = newCommandSet(con, store, &b.binding, b.disc)
	b.relay = newRelay(local, link)
	return b
}

// Run drives the bridge until ctx is cancelled. Link loss in steady state
// loops back through the boot sequence instead of exiting.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		if err := b.boot(ctx); err != nil {
			return err
		}
		err := b.steady(ctx)
		if errors.Is(err, errRestart) {
			b.log.Info("restarting after link loss")
			continue
		}
		return err
	}
}

// boot loads (or defaults) the binding and attempts to connect until the
// link comes up or the operator toggles into configuration mode. Each failed
// attempt is followed by the bounded connection wait, then the escape
// window.
func (b *Bridge) boot(ctx context.Context) error {
	b.mode = modeLink
	b.linkWasUp = false

	b.binding = b.store.Load()
	if !b.binding.Valid {
		b.binding = DefaultBinding()
		b.store.Save(b.binding)
		b.con.Printf("no stored binding, using defaults")
	}
	b.link.SetAuthCode(b.binding.CodeString())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.con.Printf("connecting to %s ...", b.binding.Addr)
		err := b.link.Connect(b.binding.Addr, b.channel, securePolicy, RoleSubordinate)
		if err != nil {
			b.log.Debug("connect attempt failed", "addr", b.binding.Addr.String(), "err", err)
		} else if b.link.WaitConnected(connectTimeout) {
			b.linkWasUp = true
			b.con.Printf("connected to %s", b.binding.Addr)
			return nil
		}

		// Escape hatch: a toggle edge here aborts further connect
		// attempts for this boot cycle.
		steps := int(escapeWindow / pollStep)
		for i := 0; i < steps; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if b.toggleEdge() {
				b.mode = modeConfig
				b.con.Printf("entering configuration mode")
				return nil
			}
			b.sleep(pollStep)
		}
	}
}

// steady is the per-cycle loop: toggle first, then either relay traffic or
// drain command input. Returns errRestart on link loss.
func (b *Bridge) steady(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.toggleEdge() {
			b.flipMode()
		}

		switch b.mode {
		case modeLink:
			if !b.link.Connected() {
				if b.linkWasUp {
					b.con.Printf("connection lost")
					b.link.Disconnect()
					b.linkWasUp = false
				}
				return errRestart
			}
			b.relay.Cycle()
		case modeConfig:
			b.drainCommandInput()
		}
		b.sleep(pollStep)
	}
}

// toggleEdge reports an inactive→active transition of the toggle input.
// Debounce is purely level-compare against the previous poll.
func (b *Bridge) toggleEdge() bool {
	level := b.toggle.Level()
	edge := level && !b.lastLevel
	b.lastLevel = level
	return edge
}

func (b *Bridge) flipMode() {
	if b.mode == modeLink {
		b.mode = modeConfig
	} else {
		b.mode = modeLink
	}
	b.con.Printf("switched to %s mode", b.mode)
}

// drainCommandInput moves every pending local-transport byte through the
// line buffer, dispatching each completed line to the parser.
func (b *Bridge) drainCommandInput() {
	var buf [lineCap]byte
	for {
		n, err := b.local.ReadAvailable(buf[:])
		if n == 0 || err != nil {
			return
		}
		for _, c := range buf[:n] {
			if line, complete := b.line.Push(c); complete {
				b.cmds.Execute(line)
			}
		}
	}
}
