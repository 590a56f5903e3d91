// Package command maps radio and host operations to uniform results for
// the CLI. Every failure becomes a Result with status "error"; nothing here
// returns an error to the caller.
package command

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/e32"
	"github.com/mbalug7/lora-e32/hal"
	"github.com/mbalug7/lora-e32/metrics"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Result struct {
	Status string                 `json:"status"`
	Output string                 `json:"output,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

func success(output string, fields map[string]interface{}) Result {
	return Result{Status: StatusSuccess, Output: output, Fields: fields}
}

func failure(output string) Result {
	return Result{Status: StatusError, Output: output}
}

// Radio is the part of the driver the processor uses.
type Radio interface {
	Send(ctx context.Context, payload []byte) error
	SendFramed(ctx context.Context, payload []byte) error
	SendFile(ctx context.Context, name string, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	ReceiveFramed(ctx context.Context) (*e32.Packet, error)
	Parameters(ctx context.Context) ([]byte, error)
	Version(ctx context.Context) ([]byte, error)
	Restart(ctx context.Context) error
	Mode() hal.Mode
	Configuration() string
	Checksum() e32.Checksum
}

// Runner executes a host command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimRight(string(out), "\n"), err
}

type Processor struct {
	radio   Radio
	log     *logrus.Logger
	metrics *metrics.Link
	run     Runner
}

// NewProcessor wraps radio. link may be nil.
func NewProcessor(radio Radio, log *logrus.Logger, link *metrics.Link) *Processor {
	return &Processor{radio: radio, log: log, metrics: link, run: execRunner}
}

// WithRunner replaces how host commands are executed.
func (p *Processor) WithRunner(run Runner) *Processor {
	p.run = run
	return p
}

func (p *Processor) observe(op string, start time.Time, err error) {
	if err != nil {
		p.log.WithFields(logrus.Fields{"op": op, "kind": metrics.ErrorKind(err)}).Warnf("%s failed: %v", op, err)
	} else {
		p.log.WithField("op", op).Debugf("%s done in %s", op, time.Since(start))
	}
	if p.metrics != nil {
		p.metrics.Observe(op, start, err)
	}
}

// List lists dir in the manner of ls -l.
func (p *Processor) List(dir string) Result {
	start := time.Now()
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	p.observe("list", start, err)
	if err != nil {
		return failure(err.Error())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "total %d", len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s %10d %s %s", info.Mode(), info.Size(), info.ModTime().Format("Jan _2 15:04"), e.Name())
	}
	return success(b.String(), nil)
}

// SendFile transfers the file at path behind a file header carrying its
// base name.
func (p *Processor) SendFile(ctx context.Context, path string) Result {
	if path == "" {
		return failure("No filename specified")
	}
	start := time.Now()

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.observe("send_file", start, err)
		return failure("File does not exist")
	case errors.Is(err, fs.ErrPermission):
		p.observe("send_file", start, err)
		return failure("Permission denied: " + path)
	case err != nil:
		p.observe("send_file", start, err)
		return failure("Unexpected error: " + err.Error())
	case info.IsDir():
		p.observe("send_file", start, fmt.Errorf("%s is a directory", path))
		return failure("Is a directory: " + path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.observe("send_file", start, err)
		if errors.Is(err, fs.ErrPermission) {
			return failure("Permission denied: " + path)
		}
		return failure("Unexpected error: " + err.Error())
	}

	name := filepath.Base(path)
	err = p.radio.SendFile(ctx, name, data)
	p.observe("send_file", start, err)
	if err != nil {
		var transfer *e32.TransferError
		if errors.As(err, &transfer) && transfer.Part == "header" {
			return failure("Header send failed")
		}
		if errors.As(err, &transfer) {
			return failure("Data send failed")
		}
		return failure("Unexpected error: " + err.Error())
	}
	if p.metrics != nil {
		p.metrics.ObserveSend(len(data))
	}
	return success("", map[string]interface{}{
		"filename": name,
		"size":     len(data),
		"crc":      p.radio.Checksum().Sum(data),
	})
}

var statusCommands = []struct {
	field string
	name  string
	args  []string
}{
	{"diskspace", "df", []string{"-h"}},
	{"memory", "free", []string{"-m"}},
	{"configuration", "iwconfig", nil},
	{"ip", "ip", []string{"addr"}},
}

// Status collects disk, memory, wireless and address information from the
// host. A tool that is missing or fails leaves its error text in its field.
func (p *Processor) Status(ctx context.Context) Result {
	start := time.Now()
	fields := make(map[string]interface{}, len(statusCommands))
	failed := 0
	for _, c := range statusCommands {
		out, err := p.run(ctx, c.name, c.args...)
		if err != nil {
			failed++
			p.log.Warnf("status: %s: %v", c.name, err)
			if out == "" {
				out = err.Error()
			}
		}
		fields[c.field] = out
	}
	if failed == len(statusCommands) {
		err := fmt.Errorf("no status command succeeded")
		p.observe("status", start, err)
		return failure(err.Error())
	}
	p.observe("status", start, nil)
	return success("", fields)
}

func (p *Processor) Restart(ctx context.Context) Result {
	start := time.Now()
	err := p.radio.Restart(ctx)
	p.observe("restart", start, err)
	if err != nil {
		return failure(err.Error())
	}
	return success("Restart command sent.", nil)
}

func (p *Processor) SendText(ctx context.Context, text string) Result {
	start := time.Now()
	err := p.radio.Send(ctx, []byte(text))
	p.observe("send", start, err)
	if err != nil {
		return failure("Send failed: " + err.Error())
	}
	if p.metrics != nil {
		p.metrics.ObserveSend(len(text))
	}
	return success("Sent successfully.", map[string]interface{}{"size": len(text)})
}

// SendChecked sends text behind a length and checksum header.
func (p *Processor) SendChecked(ctx context.Context, text string) Result {
	start := time.Now()
	err := p.radio.SendFramed(ctx, []byte(text))
	p.observe("send_crc", start, err)
	if err != nil {
		return failure("Send with CRC failed: " + err.Error())
	}
	if p.metrics != nil {
		p.metrics.ObserveSend(len(text))
	}
	return success("Sent with CRC.", map[string]interface{}{
		"size": len(text),
		"crc":  p.radio.Checksum().Sum([]byte(text)),
	})
}

// Receive returns one burst as text, or as hex when asHex is set.
func (p *Processor) Receive(ctx context.Context, asHex bool) Result {
	start := time.Now()
	data, err := p.radio.Receive(ctx)
	p.observe("receive", start, err)
	if err != nil {
		return failure("Receive failed: " + err.Error())
	}
	if data == nil {
		return success("No data received.", nil)
	}
	if p.metrics != nil {
		p.metrics.ObserveReceive(len(data))
	}
	return success(render(data, asHex), map[string]interface{}{"size": len(data)})
}

// ReceiveFramed returns one verified packet.
func (p *Processor) ReceiveFramed(ctx context.Context, asHex bool) Result {
	start := time.Now()
	pkt, err := p.radio.ReceiveFramed(ctx)
	p.observe("receive_framed", start, err)
	if p.metrics != nil {
		p.metrics.ObservePacket(pkt, err)
	}
	if err != nil {
		return failure("Receive failed: " + err.Error())
	}
	if pkt == nil {
		return success("No data received.", nil)
	}
	fields := map[string]interface{}{
		"size": len(pkt.Payload),
		"crc":  pkt.Checksum,
	}
	if pkt.Name != "" {
		fields["filename"] = pkt.Name
	}
	return success(render(pkt.Payload, asHex), fields)
}

func render(data []byte, asHex bool) string {
	if asHex {
		return hex.EncodeToString(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// Parameters reads the module's configuration and version.
func (p *Processor) Parameters(ctx context.Context) Result {
	start := time.Now()
	params, err := p.radio.Parameters(ctx)
	if err != nil {
		p.observe("parameters", start, err)
		return failure(err.Error())
	}
	version, err := p.radio.Version(ctx)
	p.observe("parameters", start, err)
	if err != nil {
		return failure(err.Error())
	}
	return success(p.radio.Configuration(), map[string]interface{}{
		"parameters": hex.EncodeToString(params),
		"version":    hex.EncodeToString(version),
	})
}

// Mode reports the M0/M1 levels and the mode they select.
func (p *Processor) Mode() Result {
	mode := p.radio.Mode()
	m0, m1, ok := hal.LinesForMode(mode)
	if !ok {
		return failure("Unknown state (check wiring)")
	}
	return success(fmt.Sprintf("M0=%s, M1=%s: %s mode", m0, m1, hal.ModeName(mode)), map[string]interface{}{
		"m0":   m0.String(),
		"m1":   m1.String(),
		"mode": hal.ModeName(mode),
	})
}
