package command

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/e32"
	"github.com/mbalug7/lora-e32/hal"
	"github.com/mbalug7/lora-e32/hal/stub"
	"github.com/mbalug7/lora-e32/metrics"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newProcessor(t *testing.T) (*Processor, *stub.Radio, *metrics.Link) {
	t.Helper()
	radio := stub.New()
	d, err := e32.Open(context.Background(), radio.Lines(), radio.Port(),
		e32.WithPollInterval(time.Millisecond),
		e32.WithSettleDelay(0),
		e32.WithConfigGap(0),
		e32.WithResponseTimeout(20*time.Millisecond),
		e32.WithReadyTimeout(50*time.Millisecond),
		e32.WithTransmitTimeout(50*time.Millisecond),
		e32.WithReceiveTimeout(60*time.Millisecond),
		e32.WithInterPacketWindow(15*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	link := metrics.NewLink(prometheus.NewRegistry())
	return NewProcessor(d, quietLogger(), link), radio, link
}

func TestSendFile(t *testing.T) {
	p, radio, link := newProcessor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	data := []byte(strings.Repeat("radio ", 20))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res := p.SendFile(context.Background(), path)
	if res.Status != StatusSuccess {
		t.Fatalf("SendFile() = %+v", res)
	}
	if res.Fields["filename"] != "notes.txt" || res.Fields["size"] != len(data) {
		t.Errorf("fields = %v", res.Fields)
	}
	if res.Fields["crc"] != e32.CRC16XMODEM.Sum(data) {
		t.Errorf("crc = %v, want %d", res.Fields["crc"], e32.CRC16XMODEM.Sum(data))
	}
	sent := radio.Sent()
	if len(sent) == 0 || !strings.HasPrefix(string(sent[0]), "FILE: notes.txt:120:") {
		t.Errorf("first send = %q", sent)
	}
	if got := testutil.ToFloat64(link.Operations.WithLabelValues("send_file", "success")); got != 1 {
		t.Errorf("send_file successes = %v, want 1", got)
	}
}

func TestSendFileErrors(t *testing.T) {
	p, _, link := newProcessor(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"no name", "", "No filename specified"},
		{"missing", filepath.Join(dir, "nope.bin"), "File does not exist"},
		{"directory", dir, "Is a directory: " + dir},
	}
	for _, tt := range tests {
		res := p.SendFile(context.Background(), tt.path)
		if res.Status != StatusError || res.Output != tt.want {
			t.Errorf("%s: SendFile() = %+v, want error %q", tt.name, res, tt.want)
		}
	}
	// every failure but the missing name is observed
	if got := testutil.ToFloat64(link.Operations.WithLabelValues("send_file", "error")); got != 2 {
		t.Errorf("send_file errors = %v, want 2", got)
	}
}

func TestSendFilePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	p, _, _ := newProcessor(t)
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("x"), 0o000); err != nil {
		t.Fatal(err)
	}
	res := p.SendFile(context.Background(), path)
	if res.Output != "Permission denied: "+path {
		t.Errorf("SendFile() = %+v", res)
	}
}

type failingRadio struct {
	Radio
	err error
}

func (f failingRadio) SendFile(context.Context, string, []byte) error { return f.err }

func TestSendFileTransferFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		err  error
		want string
	}{
		{&e32.TransferError{Part: "header", Err: e32.ErrLinkNotReady}, "Header send failed"},
		{&e32.TransferError{Part: "payload", Err: e32.ErrTransmitIncomplete}, "Data send failed"},
		{e32.ErrClosed, "Unexpected error: driver closed"},
	}
	for _, tt := range tests {
		p := NewProcessor(failingRadio{err: tt.err}, quietLogger(), nil)
		if res := p.SendFile(context.Background(), path); res.Output != tt.want {
			t.Errorf("SendFile() with %v = %+v, want %q", tt.err, res, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	p, _, _ := newProcessor(t)
	var ran []string
	p.WithRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		ran = append(ran, strings.Join(append([]string{name}, args...), " "))
		if name == "iwconfig" {
			return "", errors.New("executable file not found")
		}
		return name + " output", nil
	})

	res := p.Status(context.Background())
	if res.Status != StatusSuccess {
		t.Fatalf("Status() = %+v", res)
	}
	if strings.Join(ran, ";") != "df -h;free -m;iwconfig;ip addr" {
		t.Errorf("ran %q", ran)
	}
	if res.Fields["diskspace"] != "df output" || res.Fields["ip"] != "ip output" {
		t.Errorf("fields = %v", res.Fields)
	}
	if res.Fields["configuration"] != "executable file not found" {
		t.Errorf("configuration = %v", res.Fields["configuration"])
	}

	p.WithRunner(func(context.Context, string, ...string) (string, error) { return "", errors.New("no") })
	if res := p.Status(context.Background()); res.Status != StatusError {
		t.Errorf("Status() with every command failing = %+v", res)
	}
}

func TestList(t *testing.T) {
	p, _, _ := newProcessor(t)
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	res := p.List(dir)
	if res.Status != StatusSuccess || !strings.HasPrefix(res.Output, "total 2") {
		t.Fatalf("List() = %+v", res)
	}
	if !strings.Contains(res.Output, "a.txt") || !strings.Contains(res.Output, "b.jpg") {
		t.Errorf("List() output %q", res.Output)
	}
	if res := p.List(filepath.Join(dir, "missing")); res.Status != StatusError {
		t.Errorf("List(missing) = %+v", res)
	}
}

func TestTextAndReceive(t *testing.T) {
	p, radio, _ := newProcessor(t)
	ctx := context.Background()

	if res := p.SendText(ctx, "hello"); res.Status != StatusSuccess {
		t.Fatalf("SendText() = %+v", res)
	}
	if res := p.SendChecked(ctx, "hello"); res.Status != StatusSuccess || res.Fields["crc"] != e32.CRC16XMODEM.Sum([]byte("hello")) {
		t.Fatalf("SendChecked() = %+v", res)
	}
	sent := radio.Sent()
	if len(sent) != 2 || string(sent[1]) != string(e32.EncodeFrame([]byte("hello"), e32.CRC16XMODEM)) {
		t.Errorf("sent = %q", sent)
	}

	if res := p.Receive(ctx, false); res.Output != "No data received." {
		t.Errorf("idle Receive() = %+v", res)
	}
	radio.Deliver([]byte{'h', 'i', 0xFF})
	if res := p.Receive(ctx, true); res.Output != "6869ff" {
		t.Errorf("Receive(hex) = %+v", res)
	}

	radio.Deliver(sent[1])
	res := p.ReceiveFramed(ctx, false)
	if res.Status != StatusSuccess || res.Output != "hello" {
		t.Errorf("ReceiveFramed() = %+v", res)
	}
}

func TestParametersAndMode(t *testing.T) {
	p, _, _ := newProcessor(t)
	ctx := context.Background()

	res := p.Parameters(ctx)
	if res.Status != StatusSuccess {
		t.Fatalf("Parameters() = %+v", res)
	}
	if res.Fields["parameters"] != "c000001a0f47" || res.Fields["version"] != "c3322714" {
		t.Errorf("fields = %v", res.Fields)
	}

	res = p.Mode()
	if res.Fields["mode"] != hal.ModeName(hal.ModeNormal) || res.Fields["m0"] != "LOW" || res.Fields["m1"] != "LOW" {
		t.Errorf("Mode() = %+v", res)
	}

	if res := p.Restart(ctx); res.Status != StatusSuccess {
		t.Errorf("Restart() = %+v", res)
	}
}
