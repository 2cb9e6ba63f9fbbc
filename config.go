package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the daemon's static wiring: which serial port to bridge, which
// adapter to use, and where the toggle button lives. The remote binding is
// NOT here; it belongs to the persistent binding store and is managed over
// the serial console.
type Config struct {
	SerialPort string `json:"serial_port"` // e.g. "/dev/ttyUSB0"
	BaudRate   int    `json:"baud_rate"`
	Adapter    string `json:"adapter"` // e.g. "hci0"
	Channel    uint8  `json:"channel"` // RFCOMM channel, 0 = default

	// GPIOChip/TogglePin select the physical mode-toggle button. With an
	// empty chip, SIGUSR1 stands in for the button.
	GPIOChip  string `json:"gpio_chip,omitempty"`
	TogglePin int    `json:"toggle_pin,omitempty"`

	StateDir string `json:"state_dir,omitempty"`
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "btbridge", "config.json")
}

func defaultStateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".local", "state")
	}
	return filepath.Join(dir, "btbridge")
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist. A present-but-broken file is an error, not a silent default.
func loadConfig(path string) (Config, error) {
	cfg := Config{
		SerialPort: "/dev/ttyUSB0",
		BaudRate:   115200,
		Adapter:    "hci0",
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.StateDir = defaultStateDir()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Adapter == "" {
		cfg.Adapter = "hci0"
	}
	return cfg, nil
}
