// Package links discovers CAN network interfaces over rtnetlink.
package links

import (
	"fmt"
	"sort"

	"github.com/vishvananda/netlink"

	"github.com/kstaniek/go-cansock/internal/can"
)

// Link describes one CAN-type network interface.
type Link struct {
	Index     int
	Name      string
	Type      string // can, vcan or vxcan
	MTU       int
	OperState string
	// Bitrate is the nominal bitrate of hardware controllers; 0 for virtual links.
	Bitrate uint32
	// FD reports an MTU of CANFD_MTU.
	FD bool
}

func (l Link) Interface() can.Interface { return can.Interface{Index: l.Index, Name: l.Name} }

var canTypes = map[string]bool{"can": true, "vcan": true, "vxcan": true}

// linkList is replaced in tests.
var linkList = netlink.LinkList

// List returns every CAN-type link, ordered by interface index.
func List() ([]Link, error) {
	all, err := linkList()
	if err != nil {
		return nil, fmt.Errorf("netlink link list: %w", err)
	}
	return filterCAN(all), nil
}

func filterCAN(all []netlink.Link) []Link {
	out := make([]Link, 0, len(all))
	for _, l := range all {
		if !canTypes[l.Type()] {
			continue
		}
		a := l.Attrs()
		lk := Link{
			Index:     a.Index,
			Name:      a.Name,
			Type:      l.Type(),
			MTU:       a.MTU,
			OperState: a.OperState.String(),
			FD:        a.MTU == can.CANFD_MTU,
		}
		if c, ok := l.(*netlink.Can); ok {
			lk.Bitrate = c.BitRate
		}
		out = append(out, lk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
