package e32

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrModeTransitionTimeout = errors.New("mode transition not confirmed by AUX")
	ErrConfigurationRejected = errors.New("configuration rejected by module")
	ErrLinkNotReady          = errors.New("link not ready")
	ErrTransmitIncomplete    = errors.New("transmission not confirmed by AUX")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrCommandRejected       = errors.New("command rejected by module")
	ErrShortResponse         = errors.New("short response from module")
	ErrUnsupported           = errors.New("operation not supported by dialect")
	ErrClosed                = errors.New("driver closed")
	ErrIncomplete            = errors.New("incomplete frame")
	ErrMalformedHeader       = errors.New("malformed frame header")
	ErrInvalidChunkSize      = errors.New("invalid chunk size")
)

// LinkError reports a status-line wait that ran out of time. Kind is one
// of ErrModeTransitionTimeout, ErrLinkNotReady or ErrTransmitIncomplete.
type LinkError struct {
	Op      string
	Kind    error
	Chunk   int // -1 when the wait was not tied to a chunk
	Elapsed time.Duration
}

func (e *LinkError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("%s: %v at chunk %d after %s", e.Op, e.Kind, e.Chunk, e.Elapsed)
	}
	return fmt.Sprintf("%s: %v after %s", e.Op, e.Kind, e.Elapsed)
}

func (e *LinkError) Unwrap() error { return e.Kind }

// ConfigurationRejectedError carries the frame that was written and the raw
// readback that failed to confirm it.
type ConfigurationRejectedError struct {
	Written  []byte
	Response []byte
}

func (e *ConfigurationRejectedError) Error() string {
	return fmt.Sprintf("configuration rejected: wrote % X, module answered % X (%d bytes)",
		e.Written, e.Response, len(e.Response))
}

func (e *ConfigurationRejectedError) Unwrap() error { return ErrConfigurationRejected }

type ChecksumMismatchError struct {
	Length   int
	Declared uint32
	Computed uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch on %d byte payload: declared %d, computed %d",
		e.Length, e.Declared, e.Computed)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }

// CommandRejectedError is returned when a text command's response contains ERROR.
type CommandRejectedError struct {
	Command  string
	Response string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("command %q rejected: %q", e.Command, e.Response)
}

func (e *CommandRejectedError) Unwrap() error { return ErrCommandRejected }

// TransferError tells which half of a split send failed.
type TransferError struct {
	Part string // "header" or "payload"
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to send %s: %v", e.Part, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
