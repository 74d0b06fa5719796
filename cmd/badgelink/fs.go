package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/badgeops/badgelink/internal/link"
)

var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "General filesystem actions",
}

func init() {
	fsCmd.AddCommand(
		&cobra.Command{
			Use:   "ls {path}",
			Short: "List a directory",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				entries, err := l.FsList(args[0])
				if err != nil {
					return err
				}
				for _, e := range entries {
					kind := "file"
					if e.IsDir {
						kind = "dir"
					}
					fmt.Printf("%-4s %10d  %s\n", kind, e.Size, e.Name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stat {path}",
			Short: "Show file metadata",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				st, err := l.FsStat(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("size=%d dir=%v mtime=%d ctime=%d\n", st.Size, st.IsDir, st.Mtime, st.Ctime)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "crc32 {path}",
			Short: "Checksum a file on the device",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				sum, err := l.FsCrc32(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%08x\n", sum)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm {path}",
			Short: "Delete a file",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				return l.FsDelete(args[0])
			}),
		},
		&cobra.Command{
			Use:   "mkdir {path}",
			Short: "Create a directory",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				return l.FsMkdir(args[0])
			}),
		},
		&cobra.Command{
			Use:   "rmdir {path}",
			Short: "Remove an empty directory",
			Args:  cobra.ExactArgs(1),
			RunE: withLink(func(l *link.Link, args []string) error {
				return l.FsRmdir(args[0])
			}),
		},
		&cobra.Command{
			Use:   "df",
			Short: "Show filesystem usage",
			Args:  cobra.NoArgs,
			RunE: withLink(func(l *link.Link, _ []string) error {
				usage, err := l.FsUsage()
				if err != nil {
					return err
				}
				fmt.Printf("used %d of %d bytes\n", usage.Used, usage.Size)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "upload {local} {remote}",
			Short: "Upload a local file to the device",
			Args:  cobra.ExactArgs(2),
			RunE: withLink(func(l *link.Link, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				return l.FsUpload(args[1], data)
			}),
		},
		&cobra.Command{
			Use:   "download {remote} {local}",
			Short: "Download a device file locally",
			Args:  cobra.ExactArgs(2),
			RunE: withLink(func(l *link.Link, args []string) error {
				data, err := l.FsDownload(args[0])
				if err != nil {
					return err
				}
				return os.WriteFile(args[1], data, 0o644)
			}),
		},
	)
}
