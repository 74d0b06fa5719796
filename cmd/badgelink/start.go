package main

import (
	"github.com/spf13/cobra"

	"github.com/badgeops/badgelink/internal/link"
)

var startCmd = &cobra.Command{
	Use:   "start {slug} [arg]",
	Short: "Launch an installed application",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withLink(func(l *link.Link, args []string) error {
		arg := ""
		if len(args) == 2 {
			arg = args[1]
		}
		return l.StartApp(args[0], arg)
	}),
}
