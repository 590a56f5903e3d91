// Package stub simulates an E32 module behind its M0/M1/AUX lines and UART
// for host-side tests and dry runs.
//
// Time inside the simulation advances with status samples: after a write,
// a mode change or an inbound transmission, AUX reads Low for BusyReads
// samples and then returns High.
package stub

import (
	"bytes"
	"errors"
	"sync"

	"github.com/mbalug7/lora-e32/hal"
)

// EventKind distinguishes entries of the radio's trace.
type EventKind int

const (
	EventStatus EventKind = iota
	EventWrite
	EventSelect
)

// Event is one observation or action seen by the simulated module.
type Event struct {
	Kind  EventKind
	Level hal.Level // EventStatus
	Data  []byte    // EventWrite
	Mode  hal.Mode  // EventSelect
}

// Radio is the simulated module. Use Lines and Port to hand its two
// halves to a driver.
type Radio struct {
	mu sync.Mutex

	// BusyReads is the number of status samples AUX stays Low after
	// activity.
	BusyReads int

	m0, m1 hal.Level
	busy   int
	stuck  bool
	silent bool

	params  []byte
	version []byte
	echo    func(written []byte) []byte
	atReply func(cmd string) string
	failSel error

	rx      []byte
	inbound [][]byte
	pending []byte

	sent     [][]byte
	commands [][]byte
	events   []Event
	resets   int

	linesClosed bool
	portClosed  bool
}

// New returns a module in normal mode holding the factory configuration
// C0 00 00 1A 17 44.
func New() *Radio {
	return &Radio{
		BusyReads: 2,
		params:    []byte{0xC0, 0x00, 0x00, 0x1A, 0x17, 0x44},
		version:   []byte{0xC3, 0x32, 0x27, 0x14},
	}
}

// Lines returns the GPIO half of the module.
func (r *Radio) Lines() hal.Lines { return &lines{r: r} }

// Port returns the UART half of the module.
func (r *Radio) Port() hal.Port { return &port{r: r} }

// Deliver queues chunks as if a peer transmitted them over the air. Each
// chunk arrives in the UART buffer after its own busy period.
func (r *Radio) Deliver(chunks ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		r.inbound = append(r.inbound, clone(c))
	}
}

// Stick holds AUX Low regardless of activity.
func (r *Radio) Stick(stuck bool) {
	r.mu.Lock()
	r.stuck = stuck
	r.mu.Unlock()
}

// SetSilent makes writes leave AUX High, as if nothing was transmitted.
func (r *Radio) SetSilent(silent bool) {
	r.mu.Lock()
	r.silent = silent
	r.mu.Unlock()
}

// SetEcho overrides the reply to a read-configuration command. It receives
// the configuration the module currently holds.
func (r *Radio) SetEcho(fn func(params []byte) []byte) {
	r.mu.Lock()
	r.echo = fn
	r.mu.Unlock()
}

// SetATReply overrides the reply to an AT command. Without it every
// command is answered "+OK".
func (r *Radio) SetATReply(fn func(cmd string) string) {
	r.mu.Lock()
	r.atReply = fn
	r.mu.Unlock()
}

// FailSelect makes every SetSelect call return err.
func (r *Radio) FailSelect(err error) {
	r.mu.Lock()
	r.failSel = err
	r.mu.Unlock()
}

// Sent returns the chunks written while the module was in a transmitting
// mode.
func (r *Radio) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.sent)
}

// Commands returns everything written while the module was in sleep mode,
// and every AT command.
func (r *Radio) Commands() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.commands)
}

func (r *Radio) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Radio) ClearEvents() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Params returns the configuration currently held by the module.
func (r *Radio) Params() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.params)
}

func (r *Radio) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func (r *Radio) Mode() hal.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return hal.ModeFromLines(r.m0, r.m1)
}

func (r *Radio) LinesClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linesClosed
}

func (r *Radio) PortClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.portClosed
}

func (r *Radio) sample() hal.Level {
	if r.stuck {
		return hal.Low
	}
	if r.busy == 0 && r.pending == nil && len(r.rx) == 0 && len(r.inbound) > 0 && !r.sleeping() {
		r.pending = r.inbound[0]
		r.inbound = r.inbound[1:]
		r.busy = r.BusyReads
	}
	if r.busy > 0 {
		r.busy--
		if r.busy == 0 && r.pending != nil {
			r.rx = append(r.rx, r.pending...)
			r.pending = nil
		}
		return hal.Low
	}
	return hal.High
}

func (r *Radio) sleeping() bool {
	return r.m0 == hal.High && r.m1 == hal.High
}

func (r *Radio) write(p []byte) {
	data := clone(p)
	r.events = append(r.events, Event{Kind: EventWrite, Data: data})

	if isAT(data) {
		r.commands = append(r.commands, data)
		r.answerAT(string(bytes.TrimRight(data, "\r\n")))
		return
	}
	if !r.sleeping() {
		r.sent = append(r.sent, data)
		if !r.silent {
			r.busy = r.BusyReads
		}
		return
	}

	r.commands = append(r.commands, data)
	switch {
	case len(data) == 6 && (data[0] == 0xC0 || data[0] == 0xC2):
		r.params = data
		if !r.silent {
			r.busy = r.BusyReads
		}
	case bytes.Equal(data, []byte{0xC1, 0xC1, 0xC1}):
		reply := r.params
		if r.echo != nil {
			reply = r.echo(clone(r.params))
		}
		r.rx = append(r.rx, reply...)
	case bytes.Equal(data, []byte{0xC3, 0xC3, 0xC3}):
		r.rx = append(r.rx, r.version...)
	case bytes.Equal(data, []byte{0xC4, 0xC4, 0xC4}):
		r.resets++
		r.rx = nil
		r.busy = r.BusyReads
	}
}

func (r *Radio) answerAT(cmd string) {
	reply := "+OK"
	switch cmd {
	case "AT+PARAMETER?":
		reply = "+PARAMETER=12,7,1,4"
	case "AT+VER?":
		reply = "+VER=RYLR896_V1.2.7"
	case "AT+RRSI?":
		reply = "+RRSI=-42"
	case "AT+RESET":
		r.resets++
		reply = "+RESET"
	}
	if r.atReply != nil {
		reply = r.atReply(cmd)
	}
	r.rx = append(r.rx, reply+"\r\n"...)
}

type lines struct{ r *Radio }

func (l *lines) SetSelect(m0, m1 hal.Level) error {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linesClosed {
		return errors.New("lines closed")
	}
	if r.failSel != nil {
		return r.failSel
	}
	r.m0, r.m1 = m0, m1
	r.events = append(r.events, Event{Kind: EventSelect, Mode: hal.ModeFromLines(m0, m1)})
	if r.busy == 0 {
		r.busy = 1
	}
	return nil
}

func (l *lines) Selected() (hal.Level, hal.Level) {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	return l.r.m0, l.r.m1
}

func (l *lines) Status() hal.Level {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	level := r.sample()
	r.events = append(r.events, Event{Kind: EventStatus, Level: level})
	return level
}

func (l *lines) Close() error {
	l.r.mu.Lock()
	l.r.linesClosed = true
	l.r.mu.Unlock()
	return nil
}

type port struct{ r *Radio }

func (p *port) Read(b []byte) (int, error) {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.portClosed {
		return 0, errors.New("port closed")
	}
	n := copy(b, r.rx)
	r.rx = r.rx[n:]
	return n, nil
}

func (p *port) Write(b []byte) (int, error) {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.portClosed {
		return 0, errors.New("port closed")
	}
	r.write(b)
	return len(b), nil
}

func (p *port) ResetInputBuffer() error {
	p.r.mu.Lock()
	p.r.rx = nil
	p.r.mu.Unlock()
	return nil
}

func (p *port) ResetOutputBuffer() error { return nil }

func (p *port) Close() error {
	p.r.mu.Lock()
	p.r.portClosed = true
	p.r.mu.Unlock()
	return nil
}

func isAT(p []byte) bool {
	return bytes.HasPrefix(p, []byte("AT")) && bytes.HasSuffix(p, []byte("\r\n"))
}

func clone(p []byte) []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

func cloneAll(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, p := range in {
		out[i] = clone(p)
	}
	return out
}
