package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName        = "org.bluez"
	adapterIface   = "org.bluez.Adapter1"
	deviceIface    = "org.bluez.Device1"
	propsIface     = "org.freedesktop.DBus.Properties"
	objectMgrIface = "org.freedesktop.DBus.ObjectManager"
	agentMgrIface  = "org.bluez.AgentManager1"
	agentIface     = "org.bluez.Agent1"

	bluezRootPath = dbus.ObjectPath("/org/bluez")
	agentPath     = dbus.ObjectPath("/io/btbridge/agent")
)

// wellKnownProfiles maps 16-bit service class UUIDs to display names for the
// scan output. The RFCOMM channel behind a profile lives in SDP records the
// Device1 interface does not expose, so channels are reported as unknown.
var wellKnownProfiles = map[string]string{
	"1101": "Serial Port",
	"1105": "Object Push",
	"1106": "File Transfer",
	"1108": "Headset",
	"110a": "Audio Source",
	"110b": "Audio Sink",
	"110c": "AVRCP Target",
	"110e": "AVRCP Controller",
	"1112": "Headset AG",
	"1115": "PANU",
	"1116": "NAP",
	"111e": "Handsfree",
	"111f": "Handsfree AG",
	"112f": "Phonebook Access",
	"1132": "Message Access",
}

// bluez is the wireless-stack collaborator: BlueZ over the system bus for
// adapter control, pairing and discovery, plus a raw RFCOMM socket for the
// byte stream.
type bluez struct {
	conn    *dbus.Conn
	adapter string
	log     *slog.Logger

	code     string
	stream   *rfcommConn
	lastAddr HWAddr

	found func(ScanEntry)
	sigCh chan *dbus.Signal
}

var _ WirelessLink = (*bluez)(nil)

func newBluez(adapter string, log *slog.Logger) (*bluez, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus; is bluetooth.service running?")
	}

	b := &bluez{conn: conn, adapter: adapter, log: log}
	if err := b.setProp(b.adapterPath(), adapterIface, "Powered", true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("power on %s: %w", adapter, err)
	}
	if err := b.registerAgent(); err != nil {
		// Pairing with PIN-protected devices will fail, but already
		// bonded ones still connect.
		log.Warn("pairing agent registration failed", "err", err)
	}
	return b, nil
}

func (b *bluez) close() {
	b.Disconnect()
	b.conn.Close()
}

func (b *bluez) adapterPath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + b.adapter)
}

// deviceObjectPath converts an address like aa:bb:cc:dd:ee:ff to
// /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func (b *bluez) deviceObjectPath(addr HWAddr) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr.String()), ":", "_")
	return dbus.ObjectPath(string(b.adapterPath()) + "/dev_" + escaped)
}

// --- property helpers ---

func (b *bluez) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := b.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (b *bluez) setProp(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	obj := b.conn.Object(busName, path)
	return obj.Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

// --- pairing agent ---

// agent answers the stack's authentication prompts with the stored code.
type agent struct {
	b *bluez
}

func (a *agent) Release() *dbus.Error { return nil }

func (a *agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	a.b.log.Info("pin code requested", "device", string(device))
	return a.b.code, nil
}

func (a *agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	n, err := strconv.ParseUint(a.b.code, 10, 32)
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return uint32(n), nil
}

func (a *agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	return nil // auto-confirm
}

func (a *agent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	return nil
}

func (a *agent) Cancel() *dbus.Error { return nil }

func (b *bluez) registerAgent() error {
	if err := b.conn.Export(&agent{b: b}, agentPath, agentIface); err != nil {
		return fmt.Errorf("export agent: %w", err)
	}
	mgr := b.conn.Object(busName, bluezRootPath)
	if call := mgr.Call(agentMgrIface+".RegisterAgent", 0, agentPath, "KeyboardOnly"); call.Err != nil {
		return fmt.Errorf("register agent: %w", call.Err)
	}
	if call := mgr.Call(agentMgrIface+".RequestDefaultAgent", 0, agentPath); call.Err != nil {
		return fmt.Errorf("request default agent: %w", call.Err)
	}
	return nil
}

// --- connection ---

func (b *bluez) SetAuthCode(code string) { b.code = code }

// Connect starts an RFCOMM connection attempt. The kernel raises security to
// the requested level during connect, consulting the registered agent when
// the remote side needs pairing; role switching to the subordinate side is
// negotiated by the baseband and is not ours to drive.
func (b *bluez) Connect(addr HWAddr, channel uint8, sec SecurityPolicy, role Role) error {
	if b.stream != nil {
		b.stream.close()
		b.stream = nil
	}
	conn, err := dialRFCOMM(addr, channel, sec)
	if err != nil {
		return err
	}
	b.stream = conn
	b.lastAddr = addr
	return nil
}

func (b *bluez) WaitConnected(timeout time.Duration) bool {
	if b.stream == nil {
		return false
	}
	return b.stream.waitConnected(timeout)
}

func (b *bluez) Connected() bool {
	return b.stream != nil && b.stream.connected()
}

// Disconnect tears down the socket and asks BlueZ to drop the baseband link
// as well. Safe to call repeatedly and with no link up.
func (b *bluez) Disconnect() {
	if b.stream != nil {
		b.stream.close()
		b.stream = nil
	}
	if b.lastAddr != (HWAddr{}) {
		obj := b.conn.Object(busName, b.deviceObjectPath(b.lastAddr))
		obj.Call(deviceIface+".Disconnect", 0)
	}
}

func (b *bluez) ReadAvailable(p []byte) (int, error) {
	if b.stream == nil {
		return 0, nil
	}
	return b.stream.ReadAvailable(p)
}

func (b *bluez) Write(p []byte) (int, error) {
	if b.stream == nil {
		return 0, nil
	}
	return b.stream.Write(p)
}

// --- discovery ---

func (b *bluez) Discover(found func(ScanEntry)) error {
	adapter := b.conn.Object(busName, b.adapterPath())

	// Classic devices only; serial bridging has no use for LE adverts.
	filter := map[string]dbus.Variant{"Transport": dbus.MakeVariant("bredr")}
	adapter.Call(adapterIface+".SetDiscoveryFilter", 0, filter)

	if err := b.conn.AddMatchSignal(
		dbus.WithMatchInterface(objectMgrIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return fmt.Errorf("subscribe discovery signals: %w", err)
	}

	if call := adapter.Call(adapterIface+".StartDiscovery", 0); call.Err != nil {
		b.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(objectMgrIface),
			dbus.WithMatchMember("InterfacesAdded"),
		)
		return fmt.Errorf("start discovery: %w", call.Err)
	}

	ch := make(chan *dbus.Signal, 16)
	b.conn.Signal(ch)
	b.sigCh = ch
	b.found = found
	go b.dispatchFound(ch)
	return nil
}

func (b *bluez) dispatchFound(ch chan *dbus.Signal) {
	for sig := range ch {
		if sig.Name != objectMgrIface+".InterfacesAdded" || len(sig.Body) < 2 {
			continue
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if e, ok := scanEntryFromProps(props); ok && b.found != nil {
			b.found(e)
		}
	}
}

func (b *bluez) StopDiscovery() {
	adapter := b.conn.Object(busName, b.adapterPath())
	adapter.Call(adapterIface+".StopDiscovery", 0)
	if b.sigCh != nil {
		b.conn.RemoveSignal(b.sigCh)
		b.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(objectMgrIface),
			dbus.WithMatchMember("InterfacesAdded"),
		)
		close(b.sigCh)
		b.sigCh = nil
	}
	b.found = nil
}

// ScanResults enumerates every device BlueZ currently knows under our
// adapter. Includes devices seen before the scan started; the radio is the
// source of truth here, not our window.
func (b *bluez) ScanResults() []ScanEntry {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := b.conn.Object(busName, "/")
	if err := root.Call(objectMgrIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		b.log.Warn("enumerate scan results", "err", err)
		return nil
	}

	prefix := string(b.adapterPath()) + "/"
	var entries []ScanEntry
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if e, ok := scanEntryFromProps(props); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// Channels maps the device's advertised service UUIDs through the
// well-known-profile table.
func (b *bluez) Channels(addr HWAddr) []ServiceEntry {
	v, err := b.getProp(b.deviceObjectPath(addr), deviceIface, "UUIDs")
	if err != nil {
		return nil
	}
	uuids, ok := v.Value().([]string)
	if !ok {
		return nil
	}
	var services []ServiceEntry
	for _, uuid := range uuids {
		if len(uuid) < 8 {
			continue
		}
		name, ok := wellKnownProfiles[strings.ToLower(uuid[4:8])]
		if !ok {
			continue
		}
		services = append(services, ServiceEntry{Name: name})
	}
	return services
}

func scanEntryFromProps(props map[string]dbus.Variant) (ScanEntry, bool) {
	addrVar, ok := props["Address"]
	if !ok {
		return ScanEntry{}, false
	}
	addrStr, ok := addrVar.Value().(string)
	if !ok {
		return ScanEntry{}, false
	}
	addr, err := ParseHWAddr(strings.ToLower(addrStr))
	if err != nil {
		return ScanEntry{}, false
	}
	e := ScanEntry{Addr: addr, Name: "(unknown)"}
	if v, ok := props["Name"]; ok {
		if s, ok := v.Value().(string); ok && s != "" {
			e.Name = s
		}
	} else if v, ok := props["Alias"]; ok {
		if s, ok := v.Value().(string); ok && s != "" {
			e.Name = s
		}
	}
	if v, ok := props["RSSI"]; ok {
		if r, ok := v.Value().(int16); ok {
			e.RSSI = r
		}
	}
	return e, true
}
