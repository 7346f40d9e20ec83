package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"

	"github.com/kstaniek/go-cansock/internal/config"
)

const mdnsServiceType = "_cansock-metrics._tcp"

// advertiseMetrics registers the Prometheus exporter via mDNS until ctx is
// done. It is a no-op when disabled.
func advertiseMetrics(ctx context.Context, cfg *config.Config, iface string) error {
	if !cfg.MDNS.Enable {
		return nil
	}
	port, err := portOf(cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("mdns: %w", err)
	}
	instance := cfg.MDNS.Name
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("cansock-%s", host)
	}
	meta := []string{
		"if=" + iface,
		"path=/metrics",
		"version=" + version,
		"commit=" + commit,
	}
	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	<-ctx.Done()
	svc.Shutdown()
	return nil
}

// portOf extracts the port of a listen address (host:port or :port).
func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("listen address %q has no usable port", addr)
	}
	return n, nil
}
