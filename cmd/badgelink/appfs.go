package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/badgeops/badgelink/internal/link"
	"github.com/badgeops/badgelink/internal/protocol"
)

var appfsCmd = &cobra.Command{
	Use:   "appfs",
	Short: "Application partition actions",
}

func init() {
	uploadCmd := &cobra.Command{
		Use:   "upload {local} {slug}",
		Short: "Install an application image",
		Args:  cobra.ExactArgs(2),
	}
	title := uploadCmd.Flags().String("title", "", "human-readable application title")
	version := uploadCmd.Flags().Uint16("version", 0, "application version")
	uploadCmd.RunE = withLink(func(l *link.Link, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		meta := protocol.AppfsMetadata{
			Slug:    args[1],
			Title:   *title,
			Version: *version,
		}
		if meta.Title == "" {
			meta.Title = meta.Slug
		}
		return l.AppfsUpload(meta, data)
	})

	appfsCmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List installed applications",
			Args:  cobra.NoArgs,
			RunE: withLink(func(l *link.Link, _ []string) error {
				apps, err := l.AppfsList()
				if err != nil {
					return err
				}
				for _, a := range apps {
					fmt.Printf("%-16s v%-5d %10d  %s\n", a.Slug, a.Version, a.Size, a.Title)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stat {slug}",
			Short: "Show one application's metadata",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				meta, err := l.AppfsStat(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("slug=%s title=%q version=%d size=%d\n", meta.Slug, meta.Title, meta.Version, meta.Size)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "crc32 {slug}",
			Short: "Checksum an installed application",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				sum, err := l.AppfsCrc32(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%08x\n", sum)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm {slug}",
			Short: "Remove an application",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				return l.AppfsDelete(args[0])
			}),
		},
		&cobra.Command{
			Use:   "df",
			Short: "Show application partition usage",
			Args:  cobra.NoArgs,
			RunE: withLink(func(l *link.Link, _ []string) error {
				usage, err := l.AppfsUsage()
				if err != nil {
					return err
				}
				fmt.Printf("used %d of %d bytes\n", usage.Used, usage.Size)
				return nil
			}),
		},
		uploadCmd,
		&cobra.Command{
			Use:   "download {slug} {local}",
			Short: "Fetch an application image",
			Args:  cobra.ExactArgs(2),
			RunE: withLink(func(l *link.Link, args []string) error {
				data, err := l.AppfsDownload(args[0])
				if err != nil {
					return err
				}
				return os.WriteFile(args[1], data, 0o644)
			}),
		},
	)
}
