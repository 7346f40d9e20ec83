package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/config"
	"github.com/kstaniek/go-cansock/internal/hub"
	"github.com/kstaniek/go-cansock/internal/metrics"
	"github.com/kstaniek/go-cansock/internal/socketcan"
)

func dumpCmd(a *app) *cobra.Command {
	var (
		filterSpecs []string
		errMaskSpec string
	)
	d := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "dump [IFACE|any]",
		Short: "Print received CAN frames until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iface := "any"
			if len(args) == 1 {
				iface = args[0]
			}
			filters, err := parseFilters(filterSpecs)
			if err != nil {
				return err
			}
			errMask, err := parseMask(errMaskSpec)
			if err != nil {
				return fmt.Errorf("--err-mask: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := dumpOptions{
				loopback: a.cfg.Dump.Loopback,
				own:      a.cfg.Dump.Own,
				filters:  filters,
				errMask:  errMask,
				timeout:  a.cfg.Dump.Timeout,
			}
			dev, err := openDumpDevice(iface, opts)
			if err != nil {
				return fmt.Errorf("socketcan open %s: %w", iface, err)
			}
			defer dev.Close()
			a.log.Info("socketcan_open", "if", iface, "loopback", opts.loopback, "own", opts.own,
				"filters", len(filters), "read_timeout", opts.timeout)
			return runDump(ctx, a, dev, iface, filters, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.Bool("loopback", d.Dump.Loopback, "Receive frames sent by other sockets on this host")
	f.Bool("own", d.Dump.Own, "Receive frames sent by this socket")
	f.Duration("read-timeout", d.Dump.Timeout, "Receive timeout; 0 blocks until the next frame (delays shutdown)")
	f.Int("buffer", d.Dump.Buffer, "Per-subscriber queue in frames")
	f.String("policy", d.Dump.Policy, "Full subscriber queue: drop frames or kick the subscriber")
	f.StringArrayVar(&filterSpecs, "filter", nil, "Receive filter id:mask in hex (repeatable)")
	f.StringVar(&errMaskSpec, "err-mask", "", "Error frame class mask (CAN_ERR_*), e.g. 0x1FFFFFFF")
	f.String("metrics-addr", d.Metrics.Addr, "Prometheus listen address (e.g. :9100); empty disables")
	f.Duration("metrics-interval", d.Metrics.Interval, "If >0, periodically log metrics counters")
	f.Bool("mdns", d.MDNS.Enable, "Advertise the metrics exporter via mDNS")
	f.String("mdns-name", d.MDNS.Name, "mDNS instance name (default cansock-<hostname>)")
	return cmd
}

// runDump fans frames from dev out to the printer and the per-interface
// counter, plus the optional exporter, until ctx is done. The printer also
// matches filters in user space.
func runDump(ctx context.Context, a *app, dev socketcan.Dev, iface string, filters []can.Filter, out io.Writer) error {
	policy, err := hub.ParsePolicy(a.cfg.Dump.Policy)
	if err != nil {
		return err
	}
	h := hub.New()
	h.Policy = policy
	printer := h.Subscribe(a.cfg.Dump.Buffer, hub.IDFilter(filters...))
	counter := h.Subscribe(a.cfg.Dump.Buffer, nil)
	names := interfaceNames(dev)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer h.CloseAll()
		return rxLoop(gctx, dev, h, a.log)
	})
	g.Go(func() error {
		defer h.Remove(printer)
		return printFrames(printer, names, out)
	})
	g.Go(func() error {
		defer h.Remove(counter)
		countFrames(counter, names, a.log)
		return nil
	})
	g.Go(func() error { return logMetrics(gctx, a.cfg.Metrics.Interval, a.log) })
	if a.cfg.Metrics.Addr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metrics.SetReadinessFunc(func() bool { return gctx.Err() == nil })
		srv := metrics.StartHTTP(a.cfg.Metrics.Addr)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
		g.Go(func() error {
			if err := advertiseMetrics(gctx, a.cfg, iface); err != nil {
				a.log.Warn("mdns_start_failed", "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// interfaceNames maps interface indexes to names for printing.
func interfaceNames(dev socketcan.Dev) map[int]string {
	names := map[int]string{}
	if ls, err := listLinks(); err == nil {
		for _, l := range ls {
			ifi := l.Interface()
			names[ifi.Index] = ifi.Name
		}
	}
	if d, ok := dev.(interface{ Interface() can.Interface }); ok {
		if ifi := d.Interface(); ifi.Index != socketcan.AllInterfaces {
			names[ifi.Index] = ifi.Name
		}
	}
	return names
}

func nameOf(names map[int]string, idx int) string {
	if n, ok := names[idx]; ok {
		return n
	}
	return "#" + strconv.Itoa(idx)
}

// errPrinterKicked stops dump when output falls so far behind that the hub
// drops the printer.
var errPrinterKicked = errors.New("dump: output too slow, printer dropped by hub (raise --buffer or use --policy=drop)")

// printFrames writes frames in candump's format until the subscription is
// closed, then drains what is left.
func printFrames(c *hub.Client, names map[int]string, w io.Writer) error {
	for {
		select {
		case fr := <-c.Out:
			if _, err := fmt.Fprintln(w, formatFrame(nameOf(names, fr.Ifindex), fr)); err != nil {
				return err
			}
		case <-c.Closed:
			for {
				select {
				case fr := <-c.Out:
					if _, err := fmt.Fprintln(w, formatFrame(nameOf(names, fr.Ifindex), fr)); err != nil {
						return err
					}
				default:
					if c.Kicked() {
						return errPrinterKicked
					}
					return nil
				}
			}
		}
	}
}

// countFrames tallies frames per interface and logs the totals once the
// subscription is closed.
func countFrames(c *hub.Client, names map[int]string, l *slog.Logger) {
	counts := map[int]uint64{}
	tally := func(fr can.Frame) { counts[fr.Ifindex]++ }
	for {
		select {
		case fr := <-c.Out:
			tally(fr)
		case <-c.Closed:
			for {
				select {
				case fr := <-c.Out:
					tally(fr)
				default:
					if c.Kicked() {
						l.Warn("rx_summary_incomplete", "reason", "counter dropped by hub")
					}
					for idx, n := range counts {
						l.Info("rx_summary", "if", nameOf(names, idx), "frames", n)
					}
					return
				}
			}
		}
	}
}

func formatFrame(name string, fr can.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-6s  ", name)
	id := fr.CANID
	switch {
	case can.IsERR(id):
		fmt.Fprintf(&b, "%08X", can.MaskERR(id))
	case can.IsEFF(id):
		fmt.Fprintf(&b, "%08X", can.MaskEFF(id))
	default:
		fmt.Fprintf(&b, "%03X", can.MaskSFF(id))
	}
	fmt.Fprintf(&b, "   [%d] ", fr.Len)
	if can.IsRTR(id) {
		b.WriteString(" remote request")
	} else {
		for _, c := range fr.Payload() {
			fmt.Fprintf(&b, " %02X", c)
		}
	}
	if can.IsERR(id) {
		b.WriteString("   ERRORFRAME")
	}
	return b.String()
}

// parseFilters parses id:mask pairs in hex.
func parseFilters(specs []string) ([]can.Filter, error) {
	out := make([]can.Filter, 0, len(specs))
	for _, s := range specs {
		idStr, maskStr, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("filter %q: want id:mask", s)
		}
		id, err := strconv.ParseUint(idStr, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("filter %q: id: %w", s, err)
		}
		mask, err := strconv.ParseUint(maskStr, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("filter %q: mask: %w", s, err)
		}
		out = append(out, can.Filter{ID: uint32(id), Mask: uint32(mask)})
	}
	return out, nil
}

func parseMask(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
