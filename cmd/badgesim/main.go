// badgesim serves the badgelink protocol over TCP from in-memory storage,
// standing in for real hardware during development and manual testing. Each
// accepted connection gets its own responder, so transfer state stays
// per-link while the stores are shared.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/badgeops/badgelink/internal/console"
	"github.com/badgeops/badgelink/internal/logging"
	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/responder"
	"github.com/badgeops/badgelink/internal/store"
)

var (
	flagListen        string
	flagFsCapacity    uint64
	flagAppfsCapacity uint64
	flagNoSeed        bool
	flagConsole       bool
)

var simCmd = &cobra.Command{
	Use:   "badgesim",
	Short: "Simulated badgelink device over TCP",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSim()
	},
	SilenceUsage: true,
}

func init() {
	simCmd.Flags().StringVarP(&flagListen, "listen", "l", "127.0.0.1:7117", "listen address")
	simCmd.Flags().Uint64Var(&flagFsCapacity, "fs-capacity", 4<<20, "filesystem capacity in bytes")
	simCmd.Flags().Uint64Var(&flagAppfsCapacity, "appfs-capacity", 16<<20, "app partition capacity in bytes")
	simCmd.Flags().BoolVar(&flagNoSeed, "no-seed", false, "start with empty storage")
	simCmd.Flags().BoolVar(&flagConsole, "console", false, "run an interactive console on stdin")
}

func main() {
	logging.ConfigureRuntime()
	if err := simCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "badgesim: %v\n", err)
		os.Exit(1)
	}
}

func runSim() error {
	log := logging.Component("badgesim")

	fs := store.NewMemFs(flagFsCapacity)
	appfs := store.NewMemAppfs(flagAppfsCapacity)
	nvs := store.NewMemNvs()
	if !flagNoSeed {
		if err := seed(fs, appfs, nvs); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", flagListen)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	if flagConsole {
		go runConsole(fs, appfs, nvs)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			log.Info().Str("peer", conn.RemoteAddr().String()).Msg("link up")
			r := responder.New(responder.Config{Appfs: appfs, Fs: fs, Nvs: nvs})
			err := r.Serve(ctx, conn)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("link failed")
				return
			}
			log.Info().Str("peer", conn.RemoteAddr().String()).Msg("link down")
		}()
	}
}

// seed populates the stores with enough content to exercise every action
// from the command-line tool.
func seed(fs *store.MemFs, appfs *store.MemAppfs, nvs *store.MemNvs) error {
	if err := fs.Mkdir("/data"); err != nil {
		return err
	}
	if err := putFile(fs, "/data/hello.txt", []byte("hello from badgesim\n")); err != nil {
		return err
	}
	if err := putApp(appfs, protocol.AppfsMetadata{
		Slug:    "snake",
		Title:   "Snake",
		Version: 3,
	}, []byte("snake-image")); err != nil {
		return err
	}
	if err := nvs.Write("system", "owner", protocol.NvsString("badgesim")); err != nil {
		return err
	}
	return nvs.Write("system", "boots", protocol.NvsUint32(1))
}

func putFile(fs *store.MemFs, path string, data []byte) error {
	up, err := fs.OpenUpload(path, uint64(len(data)))
	if err != nil {
		return err
	}
	if _, err := up.WriteAt(data, 0); err != nil {
		up.Discard()
		return err
	}
	return up.Commit()
}

func putApp(appfs *store.MemAppfs, meta protocol.AppfsMetadata, data []byte) error {
	meta.Size = uint64(len(data))
	up, err := appfs.OpenUpload(meta)
	if err != nil {
		return err
	}
	if _, err := up.WriteAt(data, 0); err != nil {
		up.Discard()
		return err
	}
	return up.Commit()
}

// runConsole serves the local diagnostic console on stdin until EOF.
func runConsole(fs *store.MemFs, appfs *store.MemAppfs, nvs *store.MemNvs) {
	c := console.New(os.Stdout)
	c.Register(console.Command{
		Name: "df",
		Help: "show storage usage",
		Run: func(_ []string, out io.Writer) error {
			fu, err := fs.Usage()
			if err != nil {
				return err
			}
			au, err := appfs.Usage()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "fs    %d/%d\nappfs %d/%d\n", fu.Used, fu.Size, au.Used, au.Size)
			return nil
		},
	})
	c.Register(console.Command{
		Name: "apps",
		Help: "list installed applications",
		Run: func(_ []string, out io.Writer) error {
			apps, _, err := appfs.List(0)
			if err != nil {
				return err
			}
			for _, a := range apps {
				fmt.Fprintf(out, "%-16s v%d %d bytes\n", a.Slug, a.Version, a.Size)
			}
			return nil
		},
	})
	c.Register(console.Command{
		Name: "last",
		Help: "show the last started application",
		Run: func(_ []string, out io.Writer) error {
			if appfs.LastStarted.Slug == "" {
				fmt.Fprintln(out, "none")
				return nil
			}
			fmt.Fprintf(out, "%s %q\n", appfs.LastStarted.Slug, appfs.LastStarted.Arg)
			return nil
		},
	})
	c.Register(console.Command{
		Name: "start",
		Help: "start {slug} [arg]: launch an installed application",
		Run: func(args []string, out io.Writer) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: start {slug} [arg]")
			}
			arg := ""
			if len(args) > 1 {
				arg = args[1]
			}
			if err := appfs.Start(args[0], arg); err != nil {
				return err
			}
			fmt.Fprintf(out, "started %s\n", args[0])
			return nil
		},
	})
	c.Register(console.Command{
		Name: "nvs",
		Help: "list stored nvs entries",
		Run: func(_ []string, out io.Writer) error {
			entries, _, err := nvs.List("", 0)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s/%s %s\n", e.Namespace, e.Key, e.Type)
			}
			return nil
		},
	})

	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if err := c.Feed(buf[:n]); err != nil {
				fmt.Fprintf(os.Stdout, "console: %v\n", err)
			}
		}
		if err != nil {
			return
		}
	}
}
