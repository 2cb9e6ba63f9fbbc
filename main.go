package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfgPath := flag.String("config", configPath(), "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*cfgPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, log *slog.Logger) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	port, err := openSerialPort(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	// Wireless subsystem failure at startup is fatal; there is nothing
	// to bridge without the radio.
	bz, err := newBluez(cfg.Adapter, log)
	if err != nil {
		return err
	}
	defer bz.close()

	kv, err := OpenKV(cfg.StateDir, bindingNamespace, false)
	if err != nil {
		return err
	}
	defer kv.Close()

	var toggle ToggleInput
	if cfg.GPIOChip != "" {
		toggle, err = newGPIOToggle(cfg.GPIOChip, cfg.TogglePin)
		if err != nil {
			return err
		}
	} else {
		toggle = newSignalToggle()
		log.Info("no toggle button configured, using SIGUSR1")
	}
	defer toggle.Close()

	con := newConsole(port)
	store := NewBindingStore(kv, con)
	bridge := NewBridge(con, log, port, bz, store, toggle, cfg.Channel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("bridge starting",
		"serial", cfg.SerialPort, "baud", cfg.BaudRate, "adapter", cfg.Adapter)
	if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutting down")
	return nil
}
