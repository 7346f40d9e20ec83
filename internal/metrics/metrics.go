package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kstaniek/go-cansock/internal/logging"
)

const namespace = "cansock"

// Prometheus collectors
var (
	RxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rx_frames_total",
		Help:      "Total CAN frames received from SocketCAN.",
	})
	TxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tx_frames_total",
		Help:      "Total CAN frames written to SocketCAN.",
	})
	TruncatedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "truncated_frames_total",
		Help:      "Total received datagrams shorter than the CAN frame header.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_dropped_frames_total",
		Help:      "Total CAN frames dropped by the hub due to slow subscribers.",
	})
	HubKickedSubscribers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_kicked_subscribers_total",
		Help:      "Total subscribers closed by the kick backpressure policy.",
	})
	HubSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_subscribers",
		Help:      "Current number of hub subscribers.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrRead       = "socketcan_read"
	ErrWrite      = "socketcan_write"
	ErrTxOverflow = "socketcan_tx_overflow"
	ErrProtocol   = "socketcan_protocol"
)

// Handler returns the HTTP handler serving /metrics and /ready.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	return mux
}

// StartHTTP serves Handler on addr in a background goroutine.
func StartHTTP(addr string) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: Handler(),
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for periodic logging without scraping.
var (
	localRx          atomic.Uint64
	localTx          atomic.Uint64
	localTruncated   atomic.Uint64
	localHubDrop     atomic.Uint64
	localHubKick     atomic.Uint64
	localErrors      atomic.Uint64
	localSubscribers atomic.Uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Rx          uint64
	Tx          uint64
	Truncated   uint64
	HubDrops    uint64
	HubKicks    uint64
	Errors      uint64 // sum across error labels
	Subscribers uint64
}

func Snap() Snapshot {
	return Snapshot{
		Rx:          localRx.Load(),
		Tx:          localTx.Load(),
		Truncated:   localTruncated.Load(),
		HubDrops:    localHubDrop.Load(),
		HubKicks:    localHubKick.Load(),
		Errors:      localErrors.Load(),
		Subscribers: localSubscribers.Load(),
	}
}

func IncRx() {
	RxFrames.Inc()
	localRx.Add(1)
}

func IncTx() {
	TxFrames.Inc()
	localTx.Add(1)
}

func IncTruncated() {
	TruncatedFrames.Inc()
	localTruncated.Add(1)
}

func IncHubDrop() {
	HubDroppedFrames.Inc()
	localHubDrop.Add(1)
}

func IncHubKick() {
	HubKickedSubscribers.Inc()
	localHubKick.Add(1)
}

func SetHubSubscribers(n int) {
	HubSubscribers.Set(float64(n))
	localSubscribers.Store(uint64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	localErrors.Add(1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrRead, ErrWrite, ErrTxOverflow, ErrProtocol} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // not set yet: report ready so the endpoint doesn't flap
		return true
	}
	return fn()
}
