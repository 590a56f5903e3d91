package e32

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Framing layout, plain:
//
//	<length>:<checksum>\n<payload>
//
// and for file transfers:
//
//	FILE: <name>:<length>:<checksum>\n<payload>
//
// length and checksum are ASCII decimal; the checksum covers the payload only.

const (
	fileHeaderPrefix = "FILE: "
	maxHeaderLen     = 512
)

// Header is the parsed first line of a framed transfer.
type Header struct {
	Name     string
	Length   int
	Checksum uint32
}

// Packet is a de-framed payload whose checksum has been verified.
type Packet struct {
	Name     string
	Payload  []byte
	Checksum uint32
}

// EncodeHeader renders h, including the trailing newline. Invalid UTF-8,
// newlines and carriage returns in the name are replaced with '?'.
func EncodeHeader(h Header) []byte {
	if h.Name == "" {
		return []byte(fmt.Sprintf("%d:%d\n", h.Length, h.Checksum))
	}
	return []byte(fmt.Sprintf("%s%s:%d:%d\n", fileHeaderPrefix, sanitizeName(h.Name), h.Length, h.Checksum))
}

// EncodeFrame returns the header for payload followed by payload.
func EncodeFrame(payload []byte, sum Checksum) []byte {
	header := EncodeHeader(Header{Length: len(payload), Checksum: sum.Sum(payload)})
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// EncodeFileHeader returns the header announcing a file named name.
func EncodeFileHeader(name string, data []byte, sum Checksum) []byte {
	return EncodeHeader(Header{Name: name, Length: len(data), Checksum: sum.Sum(data)})
}

// ParseHeader parses a header line with or without its newline. In a file
// header the name may itself contain ':'; length and checksum are always
// the last two fields.
func ParseHeader(line string) (Header, error) {
	line = strings.TrimRight(line, "\r\n")
	var h Header
	fields := line
	if strings.HasPrefix(line, fileHeaderPrefix) {
		rest := line[len(fileHeaderPrefix):]
		i := strings.LastIndex(rest, ":")
		if i < 0 {
			return Header{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		j := strings.LastIndex(rest[:i], ":")
		if j < 0 {
			return Header{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		h.Name = rest[:j]
		fields = rest[j+1:]
	}

	parts := strings.Split(fields, ":")
	if len(parts) != 2 {
		return Header{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	length, err := strconv.Atoi(parts[0])
	if err != nil || length < 0 {
		return Header{}, fmt.Errorf("%w: bad length in %q", ErrMalformedHeader, line)
	}
	sum, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Header{}, fmt.Errorf("%w: bad checksum in %q", ErrMalformedHeader, line)
	}
	h.Length = length
	h.Checksum = uint32(sum)
	return h, nil
}

// DecodeFrame decodes one framed packet from the start of buf and reports
// how many bytes it consumed. ErrIncomplete means buf does not yet hold the
// whole header or payload. A payload whose recomputed checksum differs from
// the declared one yields a *ChecksumMismatchError; consumed still covers
// the bad packet so the caller can skip it.
func DecodeFrame(buf []byte, sum Checksum) (Packet, int, error) {
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		if len(buf) > maxHeaderLen {
			return Packet{}, 0, fmt.Errorf("%w: no newline in first %d bytes", ErrMalformedHeader, maxHeaderLen)
		}
		return Packet{}, 0, ErrIncomplete
	}
	h, err := ParseHeader(string(buf[:nl]))
	if err != nil {
		return Packet{}, 0, err
	}
	body := buf[nl+1:]
	if len(body) < h.Length {
		return Packet{}, 0, ErrIncomplete
	}
	consumed := nl + 1 + h.Length
	payload := make([]byte, h.Length)
	copy(payload, body)

	computed := sum.Sum(payload)
	if computed != h.Checksum {
		return Packet{}, consumed, &ChecksumMismatchError{Length: h.Length, Declared: h.Checksum, Computed: computed}
	}
	return Packet{Name: h.Name, Payload: payload, Checksum: computed}, consumed, nil
}

func sanitizeName(name string) string {
	name = strings.ToValidUTF8(name, "?")
	return strings.NewReplacer("\n", "?", "\r", "?").Replace(name)
}

// SendFramed sends payload behind a length and checksum header, as one
// send or as header then payload when WithSplitHeader is set.
func (obj *Driver) SendFramed(ctx context.Context, payload []byte) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()

	sum := obj.cfg.checksum.Sum(payload)
	header := EncodeHeader(Header{Length: len(payload), Checksum: sum})
	if !obj.cfg.splitHeader {
		buf := make([]byte, 0, len(header)+len(payload))
		buf = append(buf, header...)
		buf = append(buf, payload...)
		return obj.send(ctx, buf, obj.cfg.chunkSize)
	}
	return obj.sendSplit(ctx, header, payload)
}

// SendFile sends data behind a file header naming it. The header and the
// data always go out as two sends.
func (obj *Driver) SendFile(ctx context.Context, name string, data []byte) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.sendSplit(ctx, EncodeFileHeader(name, data, obj.cfg.checksum), data)
}

func (obj *Driver) sendSplit(ctx context.Context, header, payload []byte) error {
	if err := obj.send(ctx, header, obj.cfg.chunkSize); err != nil {
		return &TransferError{Part: "header", Err: err}
	}
	if err := obj.send(ctx, payload, obj.cfg.chunkSize); err != nil {
		return &TransferError{Part: "payload", Err: err}
	}
	return nil
}

// ReceiveFramed receives bursts until one framed packet is complete or the
// receive timeout expires. It returns nil, nil on an idle link and a
// *ChecksumMismatchError when the payload does not match its header. Bytes
// that arrive behind a packet in the same burst are kept and decoded first
// by the next call.
func (obj *Driver) ReceiveFramed(ctx context.Context) (*Packet, error) {
	if err := obj.lock(); err != nil {
		return nil, err
	}
	defer obj.unlock()

	acc := obj.pending
	obj.pending = nil
	deadline := time.Now().Add(obj.cfg.receiveTimeout)
	for {
		if len(acc) > 0 {
			pkt, consumed, err := DecodeFrame(acc, obj.cfg.checksum)
			if !errors.Is(err, ErrIncomplete) {
				if consumed > 0 && consumed < len(acc) {
					obj.pending = append([]byte(nil), acc[consumed:]...)
				}
				if err != nil {
					return nil, err
				}
				return &pkt, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		data, err := obj.receive(ctx, remaining, obj.cfg.interPacketWindow)
		if err != nil {
			obj.pending = acc
			return nil, err
		}
		acc = append(acc, data...)
	}
	if len(acc) == 0 {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to receive frame: %w (%d bytes buffered)", ErrIncomplete, len(acc))
}
