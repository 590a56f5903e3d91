package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/e32"
)

// Link holds the radio link collectors. One Link is registered per
// registry.
type Link struct {
	Operations *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	BytesSent  prometheus.Counter
	BytesRecv  prometheus.Counter
	Packets    *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

func NewLink(reg prometheus.Registerer) *Link {
	l := &Link{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lora_operations_total",
			Help: "Radio operations by name and outcome",
		}, []string{"op", "status"}),

		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lora_errors_total",
			Help: "Radio operation failures by kind",
		}, []string{"op", "kind"}),

		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lora_bytes_sent_total",
			Help: "Payload bytes confirmed on air",
		}),

		BytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lora_bytes_received_total",
			Help: "Bytes drained from the module",
		}),

		Packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lora_packets_received_total",
			Help: "Framed packets received by checksum result",
		}, []string{"result"}),

		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lora_operation_duration_seconds",
			Help:    "Radio operation duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(l.Operations, l.Errors, l.BytesSent, l.BytesRecv, l.Packets, l.Duration)
	return l
}

// Observe records one finished operation.
func (l *Link) Observe(op string, start time.Time, err error) {
	l.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		l.Operations.WithLabelValues(op, "error").Inc()
		l.Errors.WithLabelValues(op, ErrorKind(err)).Inc()
		return
	}
	l.Operations.WithLabelValues(op, "success").Inc()
}

func (l *Link) ObserveSend(n int) { l.BytesSent.Add(float64(n)) }

func (l *Link) ObserveReceive(n int) { l.BytesRecv.Add(float64(n)) }

// ObservePacket counts a framed receive. A nil error with no packet is an
// idle link and is not counted.
func (l *Link) ObservePacket(pkt *e32.Packet, err error) {
	switch {
	case errors.Is(err, e32.ErrChecksumMismatch):
		l.Packets.WithLabelValues("checksum_mismatch").Inc()
	case err != nil:
		l.Packets.WithLabelValues("error").Inc()
	case pkt != nil:
		l.Packets.WithLabelValues("ok").Inc()
		l.BytesRecv.Add(float64(len(pkt.Payload)))
	}
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{e32.ErrModeTransitionTimeout, "mode_transition_timeout"},
	{e32.ErrConfigurationRejected, "configuration_rejected"},
	{e32.ErrLinkNotReady, "link_not_ready"},
	{e32.ErrTransmitIncomplete, "transmit_incomplete"},
	{e32.ErrChecksumMismatch, "checksum_mismatch"},
	{e32.ErrCommandRejected, "command_rejected"},
	{e32.ErrShortResponse, "short_response"},
	{e32.ErrIncomplete, "incomplete"},
	{e32.ErrMalformedHeader, "malformed_header"},
	{e32.ErrUnsupported, "unsupported"},
	{e32.ErrClosed, "closed"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline"},
}

// ErrorKind maps err to a low-cardinality label.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}

// Handler serves /metrics from reg and a /health probe.
func Handler(reg prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics server on addr until ctx ends.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("metrics server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
