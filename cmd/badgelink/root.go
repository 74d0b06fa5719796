package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/badgeops/badgelink/internal/link"
)

var (
	flagPort   string
	flagBaud   int
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "badgelink",
	Short: "Inspect and manage a badgelink device over serial or USB",
	Long: `badgelink talks the badgelink protocol to a connected device:
application storage (appfs), general filesystem (fs), the namespaced
key/value store (nvs), and app launch (start).

The device is addressed with --port, either a serial device path
(/dev/ttyACM0) or tcp:host:port for a simulated device.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "serial device path or tcp:host:port")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", 0, "serial baud rate")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to badgelink.toml")
	rootCmd.AddCommand(fsCmd, appfsCmd, nvsCmd, startCmd, syncCmd)
}

// resolveConfig merges file config and flags; flags win.
func resolveConfig() (cliConfig, error) {
	cfg := defaultCliConfig()
	if flagConfig != "" {
		loaded, err := loadCliConfig(flagConfig)
		if err != nil {
			return cliConfig{}, err
		}
		cfg = loaded
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagBaud != 0 {
		cfg.Baud = flagBaud
	}
	if cfg.Port == "" {
		return cliConfig{}, errors.New("no device port; use --port or a config file")
	}
	return cfg, nil
}

// openLink dials the transport and completes the sync handshake.
func openLink() (*link.Link, io.Closer, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, nil, err
	}

	var conn io.ReadWriteCloser
	if addr, ok := strings.CutPrefix(cfg.Port, "tcp:"); ok {
		conn, err = net.Dial("tcp", addr)
	} else {
		conn, err = serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	l, err := link.Connect(conn, cfg.Link)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return l, conn, nil
}

// withLink wraps a command body with transport setup and teardown.
func withLink(run func(l *link.Link, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		l, closer, err := openLink()
		if err != nil {
			return err
		}
		defer closer.Close()
		return run(l, args)
	}
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Verify the device answers the sync handshake",
	Args:  cobra.NoArgs,
	RunE: withLink(func(l *link.Link, _ []string) error {
		// Connect already synced; do it once more explicitly.
		if err := l.Sync(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "sync ok")
		return nil
	}),
}
