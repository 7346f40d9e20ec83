package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kstaniek/go-cansock/internal/can"
)

type ifaceInfo struct {
	can.Interface
	// KernelName is the name the kernel reports back for Index.
	KernelName string
	MTU        int
	FD         bool
	BCM        bool
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info IFACE",
		Short: "Resolve a CAN interface and report its index, MTU and capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := queryInterface(args[0])
			if err != nil {
				return fmt.Errorf("info %s: %w", args[0], err)
			}
			a.log.Debug("interface_resolved", "if", info.Interface.String(), "mtu", info.MTU)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "name\t%s\n", info.Name)
			fmt.Fprintf(tw, "index\t%d\n", info.Index)
			fmt.Fprintf(tw, "kernel name\t%s\n", info.KernelName)
			fmt.Fprintf(tw, "mtu\t%d\n", info.MTU)
			fmt.Fprintf(tw, "can fd\t%t\n", info.FD)
			fmt.Fprintf(tw, "bcm\t%t\n", info.BCM)
			if l, ok := findLink(info.Name); ok {
				fmt.Fprintf(tw, "type\t%s\n", l.Type)
				fmt.Fprintf(tw, "state\t%s\n", l.OperState)
				if l.Bitrate != 0 {
					fmt.Fprintf(tw, "bitrate\t%d\n", l.Bitrate)
				}
			}
			return tw.Flush()
		},
	}
}
