package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kstaniek/go-cansock/internal/links"
)

// listLinks is a hook for tests.
var listLinks = links.List

func linksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List CAN network interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ls, err := listLinks()
			if err != nil {
				return err
			}
			a.log.Debug("links_listed", "count", len(ls))
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tNAME\tTYPE\tMTU\tFD\tSTATE\tBITRATE")
			for _, l := range ls {
				bitrate := "-"
				if l.Bitrate != 0 {
					bitrate = fmt.Sprint(l.Bitrate)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\t%s\t%s\n", l.Index, l.Name, l.Type, l.MTU, l.FD, l.OperState, bitrate)
			}
			return tw.Flush()
		},
	}
}

// findLink looks name up among the CAN links; netlink errors read as absent.
func findLink(name string) (links.Link, bool) {
	ls, err := listLinks()
	if err != nil {
		return links.Link{}, false
	}
	for _, l := range ls {
		if l.Name == name {
			return l, true
		}
	}
	return links.Link{}, false
}
