package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mbalug7/lora-e32/e32"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&e32.LinkError{Op: "send", Kind: e32.ErrLinkNotReady, Chunk: 2}, "link_not_ready"},
		{fmt.Errorf("wrapped: %w", &e32.ChecksumMismatchError{}), "checksum_mismatch"},
		{&e32.TransferError{Part: "payload", Err: &e32.LinkError{Kind: e32.ErrTransmitIncomplete}}, "transmit_incomplete"},
		{&e32.ConfigurationRejectedError{}, "configuration_rejected"},
		{fmt.Errorf("send: %w", context.Canceled), "canceled"},
		{errors.New("disk full"), "other"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestLinkObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLink(reg)

	l.Observe("send", time.Now(), nil)
	l.Observe("send", time.Now(), &e32.LinkError{Kind: e32.ErrLinkNotReady})
	l.ObserveSend(130)
	l.ObservePacket(&e32.Packet{Payload: []byte("abc")}, nil)
	l.ObservePacket(nil, &e32.ChecksumMismatchError{})
	l.ObservePacket(nil, nil)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"send success", l.Operations.WithLabelValues("send", "success"), 1},
		{"send error", l.Operations.WithLabelValues("send", "error"), 1},
		{"not ready", l.Errors.WithLabelValues("send", "link_not_ready"), 1},
		{"bytes sent", l.BytesSent, 130},
		{"bytes received", l.BytesRecv, 3},
		{"packets ok", l.Packets.WithLabelValues("ok"), 1},
		{"packets bad", l.Packets.WithLabelValues("checksum_mismatch"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLink(reg)
	l.ObserveSend(5)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	for path, want := range map[string]string{
		"/health":  "OK",
		"/metrics": "lora_bytes_sent_total 5",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d %q, want %q", path, resp.StatusCode, body, want)
		}
	}
}
